package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

// Фейки репозиториев с функциональными полями: переопределяется только то,
// что нужно конкретному тесту, остальные методы паникуют через nil-интерфейс.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxRunner выполняет коллбэк без настоящей транзакции.
type fakeTxRunner struct {
	calls int
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.calls++
	return fn(nil)
}

type notifierCall struct {
	RecipientID int
	TemplateKey string
}

// fakeNotifier записывает вызовы для проверок.
type fakeNotifier struct {
	calls []notifierCall
}

func (n *fakeNotifier) Notify(ctx context.Context, recipientID int, templateKey string, params models.NotificationParams, entityKind string, entityID int) {
	n.calls = append(n.calls, notifierCall{RecipientID: recipientID, TemplateKey: templateKey})
}

type fakeTournamentRepo struct {
	repositories.TournamentRepository
	create       func(ctx context.Context, t *models.Tournament) error
	getByID      func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error)
	lockRow      func(ctx context.Context, exec repositories.SQLExecutor, id int) error
	update       func(ctx context.Context, t *models.Tournament) error
	updateStatus func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error
	deleteFn     func(ctx context.Context, exec repositories.SQLExecutor, id int) error
}

func (f *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	return f.create(ctx, t)
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return f.getByID(ctx, exec, id)
}

func (f *fakeTournamentRepo) LockRow(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	return f.lockRow(ctx, exec, id)
}

func (f *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	return f.update(ctx, t)
}

func (f *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return f.updateStatus(ctx, exec, id, status)
}

func (f *fakeTournamentRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	return f.deleteFn(ctx, exec, id)
}

type fakeUserRepo struct {
	repositories.UserRepository
	create           func(ctx context.Context, user *models.User) error
	getByID          func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error)
	getByPhoneNumber func(ctx context.Context, phone string) (*models.User, error)
	debitWallet      func(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error
	creditWallet     func(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error
	getRefreshTokens func(ctx context.Context, userID int) ([]string, error)
	setRefreshTokens func(ctx context.Context, userID int, tokens []string) error
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	return f.create(ctx, user)
}

func (f *fakeUserRepo) GetByPhoneNumber(ctx context.Context, phone string) (*models.User, error) {
	return f.getByPhoneNumber(ctx, phone)
}

func (f *fakeUserRepo) GetRefreshTokens(ctx context.Context, userID int) ([]string, error) {
	return f.getRefreshTokens(ctx, userID)
}

func (f *fakeUserRepo) SetRefreshTokens(ctx context.Context, userID int, tokens []string) error {
	return f.setRefreshTokens(ctx, userID, tokens)
}

func (f *fakeUserRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
	return f.getByID(ctx, exec, id)
}

func (f *fakeUserRepo) DebitWallet(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	return f.debitWallet(ctx, exec, userID, amount)
}

func (f *fakeUserRepo) CreditWallet(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
	return f.creditWallet(ctx, exec, userID, amount)
}

type fakeTeamRepo struct {
	repositories.TeamRepository
	getByID     func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error)
	updateStats func(ctx context.Context, exec repositories.SQLExecutor, teamID int, stats models.TeamStats) error
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	return f.getByID(ctx, exec, id)
}

func (f *fakeTeamRepo) UpdateStats(ctx context.Context, exec repositories.SQLExecutor, teamID int, stats models.TeamStats) error {
	return f.updateStats(ctx, exec, teamID, stats)
}

type fakeRegistrationRepo struct {
	repositories.RegistrationRepository
	create                  func(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error
	findByUserAndTournament func(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error)
	findByTeamAndTournament func(ctx context.Context, exec repositories.SQLExecutor, teamID, tournamentID int) (*models.Registration, error)
	countByTournament       func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error)
	listByTournament        func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]*models.Registration, error)
	updateStatus            func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RegistrationStatus) error
	deleteFn                func(ctx context.Context, exec repositories.SQLExecutor, id int) error
	deleteByTournament      func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error
}

func (f *fakeRegistrationRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RegistrationStatus) error {
	return f.updateStatus(ctx, exec, id, status)
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	return f.create(ctx, exec, reg)
}

func (f *fakeRegistrationRepo) FindByUserAndTournament(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
	return f.findByUserAndTournament(ctx, exec, userID, tournamentID)
}

func (f *fakeRegistrationRepo) FindByTeamAndTournament(ctx context.Context, exec repositories.SQLExecutor, teamID, tournamentID int) (*models.Registration, error) {
	return f.findByTeamAndTournament(ctx, exec, teamID, tournamentID)
}

func (f *fakeRegistrationRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	return f.countByTournament(ctx, exec, tournamentID)
}

func (f *fakeRegistrationRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]*models.Registration, error) {
	return f.listByTournament(ctx, exec, tournamentID, statuses)
}

func (f *fakeRegistrationRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	return f.deleteFn(ctx, exec, id)
}

func (f *fakeRegistrationRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return f.deleteByTournament(ctx, exec, tournamentID)
}

type fakeTransactionRepo struct {
	repositories.TransactionRepository
	create func(ctx context.Context, exec repositories.SQLExecutor, tx *models.Transaction) error
}

func (f *fakeTransactionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, tx *models.Transaction) error {
	return f.create(ctx, exec, tx)
}

type fakeMatchRepo struct {
	repositories.MatchRepository
	create             func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
	getByID            func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error)
	update             func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
	deleteByTournament func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error
}

func (f *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	return f.create(ctx, exec, match)
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return f.getByID(ctx, exec, id)
}

func (f *fakeMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	return f.update(ctx, exec, match)
}

func (f *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return f.deleteByTournament(ctx, exec, tournamentID)
}

type fakeDisputeRepo struct {
	repositories.DisputeRepository
	create             func(ctx context.Context, exec repositories.SQLExecutor, dispute *models.Dispute) error
	getByID            func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dispute, error)
	update             func(ctx context.Context, exec repositories.SQLExecutor, dispute *models.Dispute) error
	deleteByTournament func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error
}

func (f *fakeDisputeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, dispute *models.Dispute) error {
	return f.create(ctx, exec, dispute)
}

func (f *fakeDisputeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dispute, error) {
	return f.getByID(ctx, exec, id)
}

func (f *fakeDisputeRepo) Update(ctx context.Context, exec repositories.SQLExecutor, dispute *models.Dispute) error {
	return f.update(ctx, exec, dispute)
}

func (f *fakeDisputeRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return f.deleteByTournament(ctx, exec, tournamentID)
}

type fakeRatingRepo struct {
	repositories.RatingRepository
	getUserRating    func(ctx context.Context, exec repositories.SQLExecutor, userID, gameID int) (int, error)
	upsertUserRating func(ctx context.Context, exec repositories.SQLExecutor, userID, gameID, rating int) error
}

func (f *fakeRatingRepo) GetUserRating(ctx context.Context, exec repositories.SQLExecutor, userID, gameID int) (int, error) {
	return f.getUserRating(ctx, exec, userID, gameID)
}

func (f *fakeRatingRepo) UpsertUserRating(ctx context.Context, exec repositories.SQLExecutor, userID, gameID, rating int) error {
	return f.upsertUserRating(ctx, exec, userID, gameID, rating)
}

type fakeBracketRepo struct {
	repositories.BracketRepository
	create             func(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error
	deleteByTournament func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error
}

func (f *fakeBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	return f.create(ctx, exec, bracket)
}

func (f *fakeBracketRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return f.deleteByTournament(ctx, exec, tournamentID)
}

type fakeGameRepo struct {
	repositories.GameRepository
	getByID func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error)
}

func (f *fakeGameRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error) {
	return f.getByID(ctx, exec, id)
}

func userRef(id int) models.ParticipantRef {
	return models.ParticipantRef{Kind: models.ParticipantKindUser, ID: id}
}

func teamRef(id int) models.ParticipantRef {
	return models.ParticipantRef{Kind: models.ParticipantKindTeam, ID: id}
}

func intPtr(v int) *int { return &v }

// validTournamentDates возвращает согласованный набор дат начиная с base.
func validTournamentDates(base time.Time) (time.Time, time.Time, time.Time, time.Time) {
	return base, base.Add(24 * time.Hour), base.Add(25 * time.Hour), base.Add(26 * time.Hour)
}
