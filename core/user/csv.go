package user

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
)

var csvHeader = []string{
	"Name",
	"Username",
	"Email",
	"Role",
	"Email Verification Status",
	"Account Status",
	"Created At",
}

// ImportResult aggregates the outcome of a CSV import: per-row failures do
// not abort the remaining rows.
type ImportResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// ExportCSV writes the filtered user list as UTF-8 CSV (with BOM, so
// spreadsheet apps detect the encoding).
func (svc *service) ExportCSV(ctx context.Context, w io.Writer, filter QueryFilter) error {
	users, err := svc.Filter(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "filtering users")
	}

	if _, err = w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err = cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}
	for _, usr := range users {
		status := "Active"
		if usr.IsActive != nil && !*usr.IsActive {
			status = "Blocked"
		}
		verified := "Unverified"
		if usr.IsEmailVerified() {
			verified = "Verified"
		}
		row := []string{
			usr.Name,
			usr.Username,
			usr.Email,
			usr.RoleName(),
			verified,
			status,
			usr.CreatedAt.Format(time.RFC3339),
		}
		if err = cw.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCSV creates users from a CSV stream. The header row is matched
// case-insensitively and must contain an "email" column; rows failing
// validation are collected and skipped.
func (svc *service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return res, core.NewValidationError(errors.New("invalid CSV file format"))
	}
	header[0] = strings.TrimPrefix(header[0], "\xEF\xBB\xBF") // strip BOM

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[core.CleanString(h, true /* lower */)] = i
	}
	if _, ok := cols["email"]; !ok {
		return res, core.NewValidationError(errors.New(`CSV file must contain an "Email" column`))
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return core.CleanString(row[idx])
	}

	rowNum := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if isEmptyRow(row) {
			continue
		}

		email := core.CleanString(field(row, "email"), true /* lower */)
		if email == "" {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: missing email", rowNum))
			continue
		}

		nu := NewUser{
			Name:     field(row, "name"),
			Username: core.CleanString(field(row, "username"), true /* lower */),
			Email:    email,
			Roles:    rolesFromName(field(row, "role")),
		}
		if nu.Name == "" {
			nu.Name = email
		}
		// imported accounts get a random password; the user resets it via email
		nu.Password = uuid.New().String()
		nu.PasswordConfirm = nu.Password

		if err = svc.CheckUniqueness(ctx, nu.Username, nu.Email); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if _, err = svc.Create(ctx, nu); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		res.Created++
	}
	return res, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func rolesFromName(name string) []string {
	switch core.CleanString(name, true /* lower */) {
	case "admin":
		return []string{RoleAdmin}
	case "instructor":
		return []string{RoleInstructor}
	default:
		return []string{RoleStudent}
	}
}
