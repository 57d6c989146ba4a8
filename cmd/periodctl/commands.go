package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/auth"
	"github.com/nicefood/prodtrack/internal/service/ledger"
	"github.com/nicefood/prodtrack/internal/service/period"
	"github.com/nicefood/prodtrack/internal/service/recipe"
	"github.com/nicefood/prodtrack/internal/service/reporting"
)

var errAborted = errors.New("aborted")

func (r *runner) login(c *cli.Context) error {
	password := c.String("password")
	if password == "" {
		fmt.Fprint(r.out, "Password: ")
		line, err := bufio.NewReader(r.in).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	s, err := r.app.Auth.Authenticate(c.Context, c.String("username"), password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidPassword) {
			return errors.New(auth.Message(err))
		}
		return err
	}
	if err := auth.SaveSession(c.String("session"), s); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Logged in as %s (%s, %s)\n", s.Username, s.Role, s.Section)
	if s.CurrentPeriod != models.CurrentPeriodDisplay(time.Now()) {
		fmt.Fprintf(r.out, "Note: current period is %q, not this month\n", s.CurrentPeriod)
	}
	return nil
}

func (r *runner) logout(c *cli.Context) error {
	if err := auth.ClearSession(c.String("session")); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Logged out")
	return nil
}

// session reloads the saved session from the user directory so role and
// period changes made since login apply.
func (r *runner) session(c *cli.Context) (auth.Session, error) {
	saved, err := auth.LoadSession(c.String("session"))
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return auth.Session{}, errors.New("not logged in; run periodctl login first")
		}
		return auth.Session{}, err
	}
	user, err := r.app.Users.Get(c.Context, saved.ID)
	if err != nil {
		return auth.Session{}, fmt.Errorf("reload user %s: %w", saved.Username, err)
	}
	return auth.NewSession(user), nil
}

func (r *runner) admin(c *cli.Context) (auth.Session, error) {
	s, err := r.session(c)
	if err != nil {
		return s, err
	}
	if err := s.RequireAdmin(); err != nil {
		return s, errors.New(auth.Message(err))
	}
	return s, nil
}

func (r *runner) confirm(c *cli.Context, prompt string) error {
	if c.Bool("yes") {
		return nil
	}
	fmt.Fprintf(r.out, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(r.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

func (r *runner) progress() period.ProgressFunc {
	return func(done, total int) {
		fmt.Fprintf(r.out, "\r%d/%d documents", done, total)
		if done >= total {
			fmt.Fprintln(r.out)
		}
	}
}

func (r *runner) targetSections(c *cli.Context) ([]string, error) {
	if s := c.StringSlice("section"); len(s) > 0 {
		return s, nil
	}
	return r.app.Sections.Values(c.Context)
}

func parsePeriodFlag(v string) (models.Period, error) {
	v = strings.TrimSpace(v)
	if strings.Contains(v, ",") {
		v = models.EncodePeriodKey(v)
	}
	return models.ParsePeriodKey(v)
}

func (r *runner) createPeriod(c *cli.Context) error {
	return r.periodLifecycle(c, "Create", r.app.Periods.CreatePeriod)
}

func (r *runner) deletePeriod(c *cli.Context) error {
	return r.periodLifecycle(c, "Delete", r.app.Periods.DeletePeriod)
}

type lifecycleFunc func(ctx context.Context, sections []string, p models.Period, progress period.ProgressFunc) (period.Result, error)

func (r *runner) periodLifecycle(c *cli.Context, verb string, run lifecycleFunc) error {
	if _, err := r.admin(c); err != nil {
		return err
	}
	p, err := parsePeriodFlag(c.String("period"))
	if err != nil {
		return err
	}
	sections, err := r.targetSections(c)
	if err != nil {
		return err
	}
	if err := r.confirm(c, fmt.Sprintf("%s period %s for sections %s?", verb, p.Display(), strings.Join(sections, ", "))); err != nil {
		return err
	}

	res, err := run(c.Context, sections, p, r.progress())
	if err != nil {
		return err
	}
	r.printResult(res)
	return nil
}

func (r *runner) resumeJob(c *cli.Context) error {
	if _, err := r.admin(c); err != nil {
		return err
	}
	res, err := r.app.Periods.ResumeJob(c.Context, c.String("job"), r.progress())
	if err != nil {
		return err
	}
	r.printResult(res)
	return nil
}

func (r *runner) printResult(res period.Result) {
	fmt.Fprintf(r.out, "%s: %d/%d documents, %d users updated, status %s\n",
		res.PeriodDisplay, res.Processed, res.Total, res.UsersUpdated, res.Status)
	r.printSkipped(res.Skipped)
	if len(res.StaleUsers) > 0 {
		fmt.Fprintf(r.out, "Users still pointing at %s: %s\n", res.PeriodDisplay, strings.Join(res.StaleUsers, ", "))
	}
	if res.Status == models.JobPartial {
		fmt.Fprintf(r.out, "Resume with: periodctl period resume --job %s\n", res.JobID)
	}
}

func (r *runner) printSkipped(skipped []ledger.Skipped) {
	for _, s := range skipped {
		fmt.Fprintf(r.out, "  skipped %s %s: %v\n", s.Collection, s.ID, s.Err)
	}
}

func (r *runner) listJobs(c *cli.Context) error {
	if _, err := r.admin(c); err != nil {
		return err
	}
	jobs, err := r.app.Periods.ListJobs(c.Context)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOP\tPERIOD\tSTATUS\tUNITS DONE\tUPDATED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", j.ID, j.Op, j.PeriodKey, j.Status, len(j.Completed), j.UpdatedAt)
	}
	return w.Flush()
}

func (r *runner) copyOpening(c *cli.Context) error {
	if _, err := r.admin(c); err != nil {
		return err
	}
	section, from, to := c.String("section"), strings.ToLower(c.String("from")), strings.ToLower(c.String("to"))
	if _, _, err := period.ValidateOpeningCopy(section, from, to); err != nil {
		return err
	}
	if err := r.confirm(c, fmt.Sprintf("Overwrite %s opening stock of %s with closing stock of %s?", section, to, from)); err != nil {
		return err
	}

	res, err := r.app.Periods.CopyOpeningFromClosing(c.Context, section, from, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Updated %d materials, %d missing from %s\n", res.Updated, res.Missing, to)
	r.printSkipped(res.Skipped)
	return nil
}

func (r *runner) importRecipes(c *cli.Context) error {
	s, err := r.admin(c)
	if err != nil {
		return err
	}

	var imports []recipe.ProductImport
	switch {
	case c.String("file") != "":
		f, err := os.Open(c.String("file"))
		if err != nil {
			return err
		}
		defer f.Close()
		if imports, err = r.app.Importer.ParseWorkbook(f); err != nil {
			return err
		}
	case c.String("sheet-id") != "":
		if imports, err = r.app.Importer.ImportFromGoogleSheet(c.Context, c.String("sheet-id")); err != nil {
			return err
		}
	default:
		return errors.New("one of --file or --sheet-id is required")
	}

	section := c.String("section")
	if err := r.confirm(c, fmt.Sprintf("Replace the recipes of %d products in %s?", len(imports), section)); err != nil {
		return err
	}

	res, err := r.app.Importer.MergeAll(c.Context, section, s.PeriodKey(), imports)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Merged %d recipes\n", len(res.Merged))
	if len(res.Missing) > 0 {
		fmt.Fprintf(r.out, "No product for: %s\n", strings.Join(res.Missing, ", "))
	}
	r.printSkipped(res.Skipped)
	return nil
}

func (r *runner) dailyReport(c *cli.Context) error {
	s, err := r.session(c)
	if err != nil {
		return err
	}
	section := c.String("section")
	if err := s.RequireSection(section); err != nil {
		return errors.New(auth.Message(err))
	}
	key := s.PeriodKey()
	if v := c.String("period"); v != "" {
		p, err := parsePeriodFlag(v)
		if err != nil {
			return err
		}
		key = p.Key()
	}
	if err := s.RequirePeriod(key); err != nil {
		return errors.New(auth.Message(err))
	}

	report, err := r.app.Consumption.DailyReport(c.Context, section, key, c.Int("day"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	format := strings.ToLower(c.String("format"))
	switch format {
	case "xlsx":
		f, err := r.app.Reporting.DailyWorkbook(report)
		if err != nil {
			return err
		}
		err = f.Write(&buf)
		_ = f.Close()
		if err != nil {
			return err
		}
	case "pdf":
		if err := r.app.Reporting.WriteDailyPDF(&buf, report); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	out := c.String("out")
	if out == "" {
		out = reporting.DailyFilename(report, format)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Wrote %s\n", filepath.Clean(out))
	return nil
}
