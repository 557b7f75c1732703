package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/quizwar/internal/game/question"
)

// ErrBankNotFound is returned when a named question bank does not exist.
var ErrBankNotFound = errors.New("question bank not found")

// BankInfo summarizes a stored question bank.
type BankInfo struct {
	Name      string
	Size      int
	UpdatedAt time.Time
}

// QuestionRepository persists named question banks.
type QuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository creates a QuestionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// LoadBank reads the named bank with its questions in stored order.
//
// Precondition: name must be non-empty.
// Postcondition: Returns a validated Bank, ErrBankNotFound, or
// question.ErrEmptyBank if the bank row exists without questions.
func (r *QuestionRepository) LoadBank(ctx context.Context, name string) (*question.Bank, error) {
	var bankID int64
	err := r.db.QueryRow(ctx, `SELECT id FROM question_banks WHERE name = $1`, name).Scan(&bankID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBankNotFound
		}
		return nil, fmt.Errorf("querying question bank: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT text, options, correct_index
		FROM questions WHERE bank_id = $1
		ORDER BY position`,
		bankID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var qs []question.Question
	for rows.Next() {
		var (
			q       question.Question
			options []string
		)
		if err := rows.Scan(&q.Text, &options, &q.CorrectIndex); err != nil {
			return nil, fmt.Errorf("scanning question row: %w", err)
		}
		if len(options) != question.OptionCount {
			return nil, fmt.Errorf("question %q has %d options", q.Text, len(options))
		}
		copy(q.Options[:], options)
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}

	bank, err := question.NewBank(qs)
	if err != nil {
		return nil, fmt.Errorf("bank %q: %w", name, err)
	}
	return bank, nil
}

// SaveBank replaces the contents of the named bank, creating it if needed.
// The replacement is atomic: readers see either the old or the new questions.
//
// Precondition: name must be non-empty; bank must be non-nil.
// Postcondition: Returns nil once the transaction commits.
func (r *QuestionRepository) SaveBank(ctx context.Context, name string, bank *question.Bank) error {
	if name == "" {
		return errors.New("bank name must not be empty")
	}
	if bank == nil {
		return question.ErrEmptyBank
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var bankID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO question_banks (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
			RETURNING id`,
			name,
		).Scan(&bankID)
		if err != nil {
			return fmt.Errorf("upserting question bank: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE bank_id = $1`, bankID); err != nil {
			return fmt.Errorf("clearing questions: %w", err)
		}

		batch := &pgx.Batch{}
		for i, q := range bank.All() {
			batch.Queue(`
				INSERT INTO questions (bank_id, position, text, options, correct_index)
				VALUES ($1, $2, $3, $4, $5)`,
				bankID, i, q.Text, q.Options[:], q.CorrectIndex,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting questions: %w", err)
		}
		return nil
	})
}

// ListBanks returns every stored bank ordered by name.
//
// Postcondition: Returns a possibly empty slice or a non-nil error.
func (r *QuestionRepository) ListBanks(ctx context.Context) ([]BankInfo, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.name, COUNT(q.id), b.updated_at
		FROM question_banks b
		LEFT JOIN questions q ON q.bank_id = b.id
		GROUP BY b.id
		ORDER BY b.name`)
	if err != nil {
		return nil, fmt.Errorf("listing question banks: %w", err)
	}
	defer rows.Close()

	var banks []BankInfo
	for rows.Next() {
		var (
			info BankInfo
			size int64
		)
		if err := rows.Scan(&info.Name, &size, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning bank row: %w", err)
		}
		info.Size = int(size)
		banks = append(banks, info)
	}
	return banks, rows.Err()
}

// DeleteBank removes the named bank and its questions.
//
// Postcondition: Returns nil on success or ErrBankNotFound.
func (r *QuestionRepository) DeleteBank(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM question_banks WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting question bank: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBankNotFound
	}
	return nil
}
