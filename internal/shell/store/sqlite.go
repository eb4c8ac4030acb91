package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/harvestplan/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", withForeignKeys(dsn))
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Row Types
// =============================================================================

type planRow struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Slug          string  `db:"slug"`
	ProductGroups *string `db:"product_groups"`
	CreatedAt     string  `db:"created_at"`
	UpdatedAt     string  `db:"updated_at"`
}

type periodRow struct {
	PlanID      string  `db:"plan_id"`
	ID          string  `db:"id"`
	Position    int     `db:"position"`
	LengthHours float64 `db:"length_h"`
}

type monthRow struct {
	PlanID    string `db:"plan_id"`
	ID        string `db:"id"`
	Position  int    `db:"position"`
	PeriodIDs string `db:"period_ids"`
}

type teamRow struct {
	PlanID                      string  `db:"plan_id"`
	ID                          string  `db:"id"`
	Position                    int     `db:"position"`
	Color                       string  `db:"color"`
	MaxWheelingDistKm           float64 `db:"max_wheeling_dist_km"`
	FixMovingCostWithoutTrailer float64 `db:"fix_moving_cost_without_trailer"`
	FixMovingCostWithTrailer    float64 `db:"fix_moving_cost_with_trailer"`
	TrailerAverageSpeed         float64 `db:"trailer_average_speed"`
	TrailerCost                 float64 `db:"trailer_cost"`
}

type taskRow struct {
	PlanID          string  `db:"plan_id"`
	ID              string  `db:"id"`
	Position        int     `db:"position"`
	TeamID          string  `db:"team_id"`
	StartHour       float64 `db:"start_hour"`
	DefaultDuration float64 `db:"default_duration"`
	DefaultSetup    float64 `db:"default_setup"`
	SpecialTeams    *string `db:"special_teams"`
	InvalidPeriods  *string `db:"invalid_periods"`
	Production      *string `db:"production"`
	HarvestCosts    *string `db:"harvest_costs"`
}

type demandRow struct {
	PlanID    string  `db:"plan_id"`
	Product   string  `db:"product"`
	Position  int     `db:"position"`
	ValueProd float64 `db:"value_prod"`
	Periods   string  `db:"periods"`
}

type distanceRow struct {
	PlanID     string  `db:"plan_id"`
	FromTaskID string  `db:"from_task_id"`
	ToTaskID   string  `db:"to_task_id"`
	Km         float64 `db:"km"`
}

// =============================================================================
// Plan Operations
// =============================================================================

func (s *SQLiteStore) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.CreatePlan(ctx, plan)
	})
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	return getPlan(ctx, s.db, id)
}

func (s *SQLiteStore) GetPlanBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	return getPlanBySlug(ctx, s.db, slug)
}

func (s *SQLiteStore) UpdatePlan(ctx context.Context, plan *domain.Plan) error {
	return updatePlan(ctx, s.db, plan)
}

func (s *SQLiteStore) ReplacePlan(ctx context.Context, plan *domain.Plan) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.ReplacePlan(ctx, plan)
	})
}

func (s *SQLiteStore) DeletePlan(ctx context.Context, id string) error {
	return deletePlan(ctx, s.db, id)
}

func (s *SQLiteStore) ListPlans(ctx context.Context, opts ListOptions) ([]domain.Plan, error) {
	return listPlans(ctx, s.db, opts)
}

// =============================================================================
// Team and Task Operations
// =============================================================================

func (s *SQLiteStore) GetTeam(ctx context.Context, planID, teamID string) (*domain.Team, error) {
	return getTeam(ctx, s.db, planID, teamID)
}

func (s *SQLiteStore) ListTeams(ctx context.Context, planID string) ([]domain.Team, error) {
	return listTeams(ctx, s.db, planID)
}

func (s *SQLiteStore) GetTask(ctx context.Context, planID, taskID string) (*domain.Task, error) {
	return getTask(ctx, s.db, planID, taskID)
}

func (s *SQLiteStore) ListTasks(ctx context.Context, planID string, opts ListOptions) ([]domain.Task, error) {
	return listTasks(ctx, s.db, planID, opts)
}

func (s *SQLiteStore) ListTasksByTeam(ctx context.Context, planID, teamID string) ([]domain.Task, error) {
	return listTasksByTeam(ctx, s.db, planID, teamID)
}

func (s *SQLiteStore) UpdateTaskPlacement(ctx context.Context, planID string, task domain.Task) error {
	return updateTaskPlacement(ctx, s.db, planID, task)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	if err := insertPlanRow(ctx, s.tx, plan); err != nil {
		return err
	}
	return insertPlanChildren(ctx, s.tx, plan)
}

func (s *txSQLiteStore) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	return getPlan(ctx, s.tx, id)
}

func (s *txSQLiteStore) GetPlanBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	return getPlanBySlug(ctx, s.tx, slug)
}

func (s *txSQLiteStore) UpdatePlan(ctx context.Context, plan *domain.Plan) error {
	return updatePlan(ctx, s.tx, plan)
}

func (s *txSQLiteStore) ReplacePlan(ctx context.Context, plan *domain.Plan) error {
	if err := updatePlan(ctx, s.tx, plan); err != nil {
		return err
	}
	if err := deletePlanChildren(ctx, s.tx, plan.ID); err != nil {
		return err
	}
	return insertPlanChildren(ctx, s.tx, plan)
}

func (s *txSQLiteStore) DeletePlan(ctx context.Context, id string) error {
	return deletePlan(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListPlans(ctx context.Context, opts ListOptions) ([]domain.Plan, error) {
	return listPlans(ctx, s.tx, opts)
}

func (s *txSQLiteStore) GetTeam(ctx context.Context, planID, teamID string) (*domain.Team, error) {
	return getTeam(ctx, s.tx, planID, teamID)
}

func (s *txSQLiteStore) ListTeams(ctx context.Context, planID string) ([]domain.Team, error) {
	return listTeams(ctx, s.tx, planID)
}

func (s *txSQLiteStore) GetTask(ctx context.Context, planID, taskID string) (*domain.Task, error) {
	return getTask(ctx, s.tx, planID, taskID)
}

func (s *txSQLiteStore) ListTasks(ctx context.Context, planID string, opts ListOptions) ([]domain.Task, error) {
	return listTasks(ctx, s.tx, planID, opts)
}

func (s *txSQLiteStore) ListTasksByTeam(ctx context.Context, planID, teamID string) ([]domain.Task, error) {
	return listTasksByTeam(ctx, s.tx, planID, teamID)
}

func (s *txSQLiteStore) UpdateTaskPlacement(ctx context.Context, planID string, task domain.Task) error {
	return updateTaskPlacement(ctx, s.tx, planID, task)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions - Plans
// =============================================================================

func insertPlanRow(ctx context.Context, exec executor, plan *domain.Plan) error {
	groups, err := marshalOptional(plan.ProductGroups)
	if err != nil {
		return NewStoreError("CreatePlan", "plan", plan.ID, "failed to serialize product groups", ErrInvalidData)
	}

	query := `
		INSERT INTO plans (id, name, slug, product_groups, created_at, updated_at)
		VALUES (:id, :name, :slug, :product_groups, :created_at, :updated_at)`

	row := planRow{
		ID:            plan.ID,
		Name:          plan.Name,
		Slug:          plan.Slug,
		ProductGroups: groups,
		CreatedAt:     plan.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     plan.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: plans.id") {
			return NewStoreError("CreatePlan", "plan", plan.ID, "plan with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: plans.slug") {
			return NewStoreError("CreatePlan", "plan", plan.ID, "plan with this slug already exists", ErrDuplicateSlug)
		}
		return NewStoreError("CreatePlan", "plan", plan.ID, err.Error(), err)
	}
	return nil
}

func insertPlanChildren(ctx context.Context, exec executor, plan *domain.Plan) error {
	for i, p := range plan.Periods {
		row := periodRow{PlanID: plan.ID, ID: p.ID, Position: i, LengthHours: p.LengthHours}
		query := `INSERT INTO periods (plan_id, id, position, length_h) VALUES (:plan_id, :id, :position, :length_h)`
		if err := insertChild(ctx, exec, "period", plan.ID, p.ID, query, row); err != nil {
			return err
		}
	}

	for i, m := range plan.Months {
		ids, err := json.Marshal(nonNil(m.PeriodIDs))
		if err != nil {
			return NewStoreError("CreatePlan", "month", m.ID, "failed to serialize periods", ErrInvalidData)
		}
		row := monthRow{PlanID: plan.ID, ID: m.ID, Position: i, PeriodIDs: string(ids)}
		query := `INSERT INTO months (plan_id, id, position, period_ids) VALUES (:plan_id, :id, :position, :period_ids)`
		if err := insertChild(ctx, exec, "month", plan.ID, m.ID, query, row); err != nil {
			return err
		}
	}

	for i, t := range plan.Teams {
		row := teamRow{
			PlanID:                      plan.ID,
			ID:                          t.ID,
			Position:                    i,
			Color:                       t.Color,
			MaxWheelingDistKm:           t.MaxWheelingDistKm,
			FixMovingCostWithoutTrailer: t.FixMovingCostWithoutTrailer,
			FixMovingCostWithTrailer:    t.FixMovingCostWithTrailer,
			TrailerAverageSpeed:         t.TrailerAverageSpeed,
			TrailerCost:                 t.TrailerCost,
		}
		query := `
			INSERT INTO teams (
				plan_id, id, position, color, max_wheeling_dist_km,
				fix_moving_cost_without_trailer, fix_moving_cost_with_trailer,
				trailer_average_speed, trailer_cost
			) VALUES (
				:plan_id, :id, :position, :color, :max_wheeling_dist_km,
				:fix_moving_cost_without_trailer, :fix_moving_cost_with_trailer,
				:trailer_average_speed, :trailer_cost
			)`
		if err := insertChild(ctx, exec, "team", plan.ID, t.ID, query, row); err != nil {
			return err
		}
	}

	for i, t := range plan.Tasks {
		row, err := taskToRow(plan.ID, i, t)
		if err != nil {
			return err
		}
		query := `
			INSERT INTO tasks (
				plan_id, id, position, team_id, start_hour, default_duration,
				default_setup, special_teams, invalid_periods, production, harvest_costs
			) VALUES (
				:plan_id, :id, :position, :team_id, :start_hour, :default_duration,
				:default_setup, :special_teams, :invalid_periods, :production, :harvest_costs
			)`
		if err := insertChild(ctx, exec, "task", plan.ID, t.ID, query, row); err != nil {
			return err
		}
	}

	for i, d := range plan.Demands {
		periods, err := json.Marshal(nonNil(d.Periods))
		if err != nil {
			return NewStoreError("CreatePlan", "demand", d.Product, "failed to serialize periods", ErrInvalidData)
		}
		row := demandRow{PlanID: plan.ID, Product: d.Product, Position: i, ValueProd: d.ValueProd, Periods: string(periods)}
		query := `INSERT INTO demands (plan_id, product, position, value_prod, periods) VALUES (:plan_id, :product, :position, :value_prod, :periods)`
		if err := insertChild(ctx, exec, "demand", plan.ID, d.Product, query, row); err != nil {
			return err
		}
	}

	for _, d := range plan.Distances {
		row := distanceRow{PlanID: plan.ID, FromTaskID: d.FromTaskID, ToTaskID: d.ToTaskID, Km: d.Km}
		query := `
			INSERT INTO distances (plan_id, from_task_id, to_task_id, km)
			VALUES (:plan_id, :from_task_id, :to_task_id, :km)
			ON CONFLICT (plan_id, from_task_id, to_task_id) DO UPDATE SET km = excluded.km`
		if err := insertChild(ctx, exec, "distance", plan.ID, d.FromTaskID+"->"+d.ToTaskID, query, row); err != nil {
			return err
		}
	}

	return nil
}

func insertChild(ctx context.Context, exec executor, entity, planID, id, query string, row any) error {
	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("CreatePlan", entity, id, fmt.Sprintf("duplicate %s in plan %s", entity, planID), ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("CreatePlan", entity, id, "plan does not exist", ErrForeignKey)
		}
		return NewStoreError("CreatePlan", entity, id, err.Error(), err)
	}
	return nil
}

func getPlan(ctx context.Context, exec executor, id string) (*domain.Plan, error) {
	var row planRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM plans WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetPlan", "plan", id, "plan not found", ErrNotFound)
		}
		return nil, NewStoreError("GetPlan", "plan", id, err.Error(), err)
	}
	return loadPlan(ctx, exec, &row)
}

func getPlanBySlug(ctx context.Context, exec executor, slug string) (*domain.Plan, error) {
	var row planRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM plans WHERE slug = ?`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetPlanBySlug", "plan", slug, "plan not found", ErrNotFound)
		}
		return nil, NewStoreError("GetPlanBySlug", "plan", slug, err.Error(), err)
	}
	return loadPlan(ctx, exec, &row)
}

// loadPlan reads every child collection of a plan row.
func loadPlan(ctx context.Context, exec executor, row *planRow) (*domain.Plan, error) {
	plan, err := rowToPlan(row)
	if err != nil {
		return nil, err
	}

	var periods []periodRow
	if err := exec.SelectContext(ctx, &periods, `SELECT * FROM periods WHERE plan_id = ? ORDER BY position`, plan.ID); err != nil {
		return nil, NewStoreError("GetPlan", "period", plan.ID, err.Error(), err)
	}
	plan.Periods = make([]domain.Period, 0, len(periods))
	for _, p := range periods {
		plan.Periods = append(plan.Periods, domain.Period{ID: p.ID, LengthHours: p.LengthHours})
	}

	var months []monthRow
	if err := exec.SelectContext(ctx, &months, `SELECT * FROM months WHERE plan_id = ? ORDER BY position`, plan.ID); err != nil {
		return nil, NewStoreError("GetPlan", "month", plan.ID, err.Error(), err)
	}
	plan.Months = make([]domain.Month, 0, len(months))
	for _, m := range months {
		var ids []string
		if err := json.Unmarshal([]byte(m.PeriodIDs), &ids); err != nil {
			return nil, NewStoreError("GetPlan", "month", m.ID, "failed to parse periods", ErrInvalidData)
		}
		plan.Months = append(plan.Months, domain.Month{ID: m.ID, PeriodIDs: ids})
	}

	if plan.Teams, err = listTeams(ctx, exec, plan.ID); err != nil {
		return nil, err
	}

	var tasks []taskRow
	if err := exec.SelectContext(ctx, &tasks, `SELECT * FROM tasks WHERE plan_id = ? ORDER BY position`, plan.ID); err != nil {
		return nil, NewStoreError("GetPlan", "task", plan.ID, err.Error(), err)
	}
	if plan.Tasks, err = rowsToTasks(tasks); err != nil {
		return nil, err
	}

	var demands []demandRow
	if err := exec.SelectContext(ctx, &demands, `SELECT * FROM demands WHERE plan_id = ? ORDER BY position`, plan.ID); err != nil {
		return nil, NewStoreError("GetPlan", "demand", plan.ID, err.Error(), err)
	}
	plan.Demands = make([]domain.Demand, 0, len(demands))
	for _, d := range demands {
		var entries []domain.DemandEntry
		if err := json.Unmarshal([]byte(d.Periods), &entries); err != nil {
			return nil, NewStoreError("GetPlan", "demand", d.Product, "failed to parse periods", ErrInvalidData)
		}
		plan.Demands = append(plan.Demands, domain.Demand{Product: d.Product, ValueProd: d.ValueProd, Periods: entries})
	}

	var distances []distanceRow
	if err := exec.SelectContext(ctx, &distances, `SELECT * FROM distances WHERE plan_id = ? ORDER BY from_task_id, to_task_id`, plan.ID); err != nil {
		return nil, NewStoreError("GetPlan", "distance", plan.ID, err.Error(), err)
	}
	plan.Distances = make([]domain.Distance, 0, len(distances))
	for _, d := range distances {
		plan.Distances = append(plan.Distances, domain.Distance{FromTaskID: d.FromTaskID, ToTaskID: d.ToTaskID, Km: d.Km})
	}

	return plan, nil
}

func updatePlan(ctx context.Context, exec executor, plan *domain.Plan) error {
	groups, err := marshalOptional(plan.ProductGroups)
	if err != nil {
		return NewStoreError("UpdatePlan", "plan", plan.ID, "failed to serialize product groups", ErrInvalidData)
	}

	query := `
		UPDATE plans SET
			name = :name,
			slug = :slug,
			product_groups = :product_groups,
			updated_at = :updated_at
		WHERE id = :id`

	row := planRow{
		ID:            plan.ID,
		Name:          plan.Name,
		Slug:          plan.Slug,
		ProductGroups: groups,
		UpdatedAt:     plan.UpdatedAt.UTC().Format(time.RFC3339),
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: plans.slug") {
			return NewStoreError("UpdatePlan", "plan", plan.ID, "plan with this slug already exists", ErrDuplicateSlug)
		}
		return NewStoreError("UpdatePlan", "plan", plan.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdatePlan", "plan", plan.ID, "plan not found", ErrNotFound)
	}

	return nil
}

func deletePlanChildren(ctx context.Context, exec executor, planID string) error {
	for _, table := range []string{"distances", "demands", "tasks", "teams", "months", "periods"} {
		if _, err := exec.ExecContext(ctx, "DELETE FROM "+table+" WHERE plan_id = ?", planID); err != nil {
			return NewStoreError("ReplacePlan", "plan", planID, err.Error(), err)
		}
	}
	return nil
}

func deletePlan(ctx context.Context, exec executor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeletePlan", "plan", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeletePlan", "plan", id, "plan not found", ErrNotFound)
	}

	return nil
}

func listPlans(ctx context.Context, exec executor, opts ListOptions) ([]domain.Plan, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM plans ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	var rows []planRow
	if err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListPlans", "plan", "", err.Error(), err)
	}

	plans := make([]domain.Plan, 0, len(rows))
	for _, row := range rows {
		plan, err := rowToPlan(&row)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}

	return plans, nil
}

// =============================================================================
// Shared Implementation Functions - Teams and Tasks
// =============================================================================

func getTeam(ctx context.Context, exec executor, planID, teamID string) (*domain.Team, error) {
	var row teamRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM teams WHERE plan_id = ? AND id = ?`, planID, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetTeam", "team", teamID, "team not found", ErrNotFound)
		}
		return nil, NewStoreError("GetTeam", "team", teamID, err.Error(), err)
	}
	team := rowToTeam(&row)
	return &team, nil
}

func listTeams(ctx context.Context, exec executor, planID string) ([]domain.Team, error) {
	var rows []teamRow
	if err := exec.SelectContext(ctx, &rows, `SELECT * FROM teams WHERE plan_id = ? ORDER BY position`, planID); err != nil {
		return nil, NewStoreError("ListTeams", "team", "", err.Error(), err)
	}

	teams := make([]domain.Team, 0, len(rows))
	for _, row := range rows {
		teams = append(teams, rowToTeam(&row))
	}
	return teams, nil
}

func getTask(ctx context.Context, exec executor, planID, taskID string) (*domain.Task, error) {
	var row taskRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM tasks WHERE plan_id = ? AND id = ?`, planID, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetTask", "task", taskID, "task not found", ErrNotFound)
		}
		return nil, NewStoreError("GetTask", "task", taskID, err.Error(), err)
	}
	task, err := rowToTask(&row)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func listTasks(ctx context.Context, exec executor, planID string, opts ListOptions) ([]domain.Task, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM tasks WHERE plan_id = ? ORDER BY position LIMIT ? OFFSET ?`

	var rows []taskRow
	if err := exec.SelectContext(ctx, &rows, query, planID, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListTasks", "task", "", err.Error(), err)
	}
	return rowsToTasks(rows)
}

func listTasksByTeam(ctx context.Context, exec executor, planID, teamID string) ([]domain.Task, error) {
	query := `SELECT * FROM tasks WHERE plan_id = ? AND team_id = ? ORDER BY start_hour, position`

	var rows []taskRow
	if err := exec.SelectContext(ctx, &rows, query, planID, teamID); err != nil {
		return nil, NewStoreError("ListTasksByTeam", "task", "", err.Error(), err)
	}
	return rowsToTasks(rows)
}

func updateTaskPlacement(ctx context.Context, exec executor, planID string, task domain.Task) error {
	query := `UPDATE tasks SET team_id = ?, start_hour = ? WHERE plan_id = ? AND id = ?`

	result, err := exec.ExecContext(ctx, query, task.TeamID, task.StartHour, planID, task.ID)
	if err != nil {
		return NewStoreError("UpdateTaskPlacement", "task", task.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateTaskPlacement", "task", task.ID, "task not found", ErrNotFound)
	}

	_, err = exec.ExecContext(ctx, `UPDATE plans SET updated_at = ? WHERE id = ?`, time.Now().UTC().Format(time.RFC3339), planID)
	if err != nil {
		return NewStoreError("UpdateTaskPlacement", "plan", planID, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Row Conversion Functions
// =============================================================================

// rowToPlan converts a plan row to a domain.Plan header.
func rowToPlan(row *planRow) (*domain.Plan, error) {
	createdAt, _ := time.Parse(time.RFC3339, row.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, row.UpdatedAt)

	var groups map[string]string
	if row.ProductGroups != nil && *row.ProductGroups != "" && *row.ProductGroups != "null" {
		if err := json.Unmarshal([]byte(*row.ProductGroups), &groups); err != nil {
			return nil, NewStoreError("rowToPlan", "plan", row.ID, "failed to parse product groups", ErrInvalidData)
		}
	}

	return &domain.Plan{
		ID:            row.ID,
		Name:          row.Name,
		Slug:          row.Slug,
		ProductGroups: groups,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func rowToTeam(row *teamRow) domain.Team {
	return domain.Team{
		ID:                          row.ID,
		Color:                       row.Color,
		MaxWheelingDistKm:           row.MaxWheelingDistKm,
		FixMovingCostWithoutTrailer: row.FixMovingCostWithoutTrailer,
		FixMovingCostWithTrailer:    row.FixMovingCostWithTrailer,
		TrailerAverageSpeed:         row.TrailerAverageSpeed,
		TrailerCost:                 row.TrailerCost,
	}
}

func taskToRow(planID string, position int, t domain.Task) (taskRow, error) {
	row := taskRow{
		PlanID:          planID,
		ID:              t.ID,
		Position:        position,
		TeamID:          t.TeamID,
		StartHour:       t.StartHour,
		DefaultDuration: t.DefaultDuration,
		DefaultSetup:    t.DefaultSetup,
	}

	var err error
	if row.SpecialTeams, err = marshalOptional(t.SpecialTeams); err != nil {
		return row, NewStoreError("CreatePlan", "task", t.ID, "failed to serialize special teams", ErrInvalidData)
	}
	if row.InvalidPeriods, err = marshalOptional(t.InvalidPeriods); err != nil {
		return row, NewStoreError("CreatePlan", "task", t.ID, "failed to serialize invalid periods", ErrInvalidData)
	}
	if row.Production, err = marshalOptional(t.Production); err != nil {
		return row, NewStoreError("CreatePlan", "task", t.ID, "failed to serialize production", ErrInvalidData)
	}
	if row.HarvestCosts, err = marshalOptional(t.HarvestCosts); err != nil {
		return row, NewStoreError("CreatePlan", "task", t.ID, "failed to serialize harvest costs", ErrInvalidData)
	}
	return row, nil
}

// rowToTask converts a database row to a domain.Task.
func rowToTask(row *taskRow) (domain.Task, error) {
	task := domain.Task{
		ID:              row.ID,
		TeamID:          row.TeamID,
		StartHour:       row.StartHour,
		DefaultDuration: row.DefaultDuration,
		DefaultSetup:    row.DefaultSetup,
	}

	if err := unmarshalOptional(row.SpecialTeams, &task.SpecialTeams); err != nil {
		return task, NewStoreError("rowToTask", "task", row.ID, "failed to parse special teams", ErrInvalidData)
	}
	if err := unmarshalOptional(row.InvalidPeriods, &task.InvalidPeriods); err != nil {
		return task, NewStoreError("rowToTask", "task", row.ID, "failed to parse invalid periods", ErrInvalidData)
	}
	if err := unmarshalOptional(row.Production, &task.Production); err != nil {
		return task, NewStoreError("rowToTask", "task", row.ID, "failed to parse production", ErrInvalidData)
	}
	if err := unmarshalOptional(row.HarvestCosts, &task.HarvestCosts); err != nil {
		return task, NewStoreError("rowToTask", "task", row.ID, "failed to parse harvest costs", ErrInvalidData)
	}
	return task, nil
}

func rowsToTasks(rows []taskRow) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		task, err := rowToTask(&row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// marshalOptional stores empty collections as NULL.
func marshalOptional[T any](v T) (*string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	if s == "null" || s == "{}" || s == "[]" {
		return nil, nil
	}
	return &s, nil
}

func unmarshalOptional[T any](s *string, dest *T) error {
	if s == nil || *s == "" || *s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(*s), dest)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
