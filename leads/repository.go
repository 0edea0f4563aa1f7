package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/mozanhq/campaign-go/store"
)

const leadColumns = "id, full_name, phone_number, email, institution, occupation, created_at, call_datetime, call_notes, visit_datetime, visit_notes"

// Repository provides domain operations over the leads table.
type Repository struct {
	store *store.Store
}

// NewRepository wires the repository to the shared store.
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// CheckDuplicate reports whether the email or phone number is already
// registered. Email is checked first; phone is only consulted when the
// email is clean. The result is advisory -- Register repeats the check
// atomically -- but it lets the form reject duplicates before submission.
func (r *Repository) CheckDuplicate(email, phoneNumber string) (DuplicateCheck, error) {
	var check DuplicateCheck
	err := r.store.Read(func(conn *sql.Conn) error {
		c, err := checkDuplicate(conn, email, phoneNumber)
		if err != nil {
			return err
		}
		check = c
		return nil
	})
	if err != nil {
		return DuplicateCheck{}, err
	}
	return check, nil
}

func checkDuplicate(conn *sql.Conn, email, phoneNumber string) (DuplicateCheck, error) {
	ctx := context.Background()

	var count int
	err := conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leads WHERE email = ?", email).Scan(&count)
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return DuplicateCheck{IsDuplicate: true, Field: "email"}, nil
	}

	err = conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leads WHERE phone_number = ?", phoneNumber).Scan(&count)
	if err != nil {
		return DuplicateCheck{}, fmt.Errorf("failed to check phone number: %w", err)
	}
	if count > 0 {
		return DuplicateCheck{IsDuplicate: true, Field: "phone"}, nil
	}

	return DuplicateCheck{}, nil
}

// Register inserts a new lead. The duplicate check and the insert run
// inside one store write, so two rapid submissions for the same email
// cannot both pass the check; the uniqueness indexes are the backstop.
// Returns ErrDuplicateEmail or ErrDuplicatePhone on rejection.
func (r *Repository) Register(input NewLead) (*Lead, error) {
	var lead *Lead
	err := r.store.Write(func(conn *sql.Conn) error {
		check, err := checkDuplicate(conn, input.Email, input.PhoneNumber)
		if err != nil {
			return err
		}
		if check.IsDuplicate {
			if check.Field == "email" {
				return ErrDuplicateEmail
			}
			return ErrDuplicatePhone
		}

		createdAt := time.Now().UTC().Format(time.RFC3339)
		res, err := conn.ExecContext(context.Background(),
			`INSERT INTO leads (full_name, phone_number, email, institution, occupation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			input.FullName, input.PhoneNumber, input.Email,
			input.Institution, input.Occupation, createdAt)
		if err != nil {
			return asDuplicateError(err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read new lead id: %w", err)
		}

		lead = &Lead{
			ID:          id,
			FullName:    input.FullName,
			PhoneNumber: input.PhoneNumber,
			Email:       input.Email,
			Institution: input.Institution,
			Occupation:  input.Occupation,
			CreatedAt:   createdAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// asDuplicateError maps a unique-index violation onto the matching
// duplicate sentinel so the constraint backstop reads the same as the
// application-level check.
func asDuplicateError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := serr.Error()
		if strings.Contains(msg, "leads.email") {
			return ErrDuplicateEmail
		}
		if strings.Contains(msg, "leads.phone_number") {
			return ErrDuplicatePhone
		}
	}
	return fmt.Errorf("failed to insert lead: %w", err)
}

// GetAll returns every lead, most recent first. An empty table yields an
// empty slice and a nil error; a read failure is returned as an error so
// callers can tell "no leads yet" from "storage unreadable".
func (r *Repository) GetAll() ([]Lead, error) {
	out := []Lead{}
	err := r.store.Read(func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(context.Background(),
			"SELECT "+leadColumns+" FROM leads ORDER BY created_at DESC")
		if err != nil {
			return fmt.Errorf("failed to query leads: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			lead, err := scanLead(rows)
			if err != nil {
				return err
			}
			out = append(out, lead)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanLead(rows *sql.Rows) (Lead, error) {
	var l Lead
	var callDT, callNotes, visitDT, visitNotes sql.NullString
	err := rows.Scan(&l.ID, &l.FullName, &l.PhoneNumber, &l.Email,
		&l.Institution, &l.Occupation, &l.CreatedAt,
		&callDT, &callNotes, &visitDT, &visitNotes)
	if err != nil {
		return Lead{}, fmt.Errorf("failed to scan lead: %w", err)
	}
	l.CallDatetime = nullableString(callDT)
	l.CallNotes = nullableString(callNotes)
	l.VisitDatetime = nullableString(visitDT)
	l.VisitNotes = nullableString(visitNotes)
	return l, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Update overwrites the five editable fields of the lead with the given
// id. A missing id matches zero rows and succeeds trivially.
func (r *Repository) Update(id int64, input NewLead) error {
	return r.store.Write(func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			`UPDATE leads SET full_name = ?, phone_number = ?, email = ?, institution = ?, occupation = ?
			 WHERE id = ?`,
			input.FullName, input.PhoneNumber, input.Email,
			input.Institution, input.Occupation, id)
		if err != nil {
			return asDuplicateError(err)
		}
		return nil
	})
}

// UpdateTracking replaces all four tracking fields in one statement.
// This is a full replace, not a patch: nil fields clear the stored value.
// A missing id is a silent no-op, like Update.
func (r *Repository) UpdateTracking(id int64, tracking Tracking) error {
	return r.store.Write(func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			`UPDATE leads SET call_datetime = ?, call_notes = ?, visit_datetime = ?, visit_notes = ?
			 WHERE id = ?`,
			tracking.CallDatetime, tracking.CallNotes,
			tracking.VisitDatetime, tracking.VisitNotes, id)
		if err != nil {
			return fmt.Errorf("failed to update lead tracking: %w", err)
		}
		return nil
	})
}

// Clear deletes every lead. Irreversible.
func (r *Repository) Clear() error {
	return r.store.Write(func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(context.Background(), "DELETE FROM leads"); err != nil {
			return fmt.Errorf("failed to clear leads: %w", err)
		}
		return nil
	})
}
