package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/app"
	"github.com/nicefood/prodtrack/internal/config"
	"github.com/nicefood/prodtrack/pkg/logger"
)

// runner carries the state shared by every command of one invocation.
type runner struct {
	in     io.Reader
	out    io.Writer
	app    *app.App
	logger *zap.Logger
}

func newRunner(in io.Reader, out io.Writer) *runner {
	return &runner{in: in, out: out, logger: zap.NewNop()}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".periodctl", "session.json")
	}
	return filepath.Join(home, ".periodctl", "session.json")
}

func (r *runner) cli() *cli.App {
	return &cli.App{
		Name:      "periodctl",
		Usage:     "Administer production periods, opening stock and recipe imports",
		Reader:    r.in,
		Writer:    r.out,
		ErrWriter: r.out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Load configuration from this .env file",
				EnvVars: []string{"PERIODCTL_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:    "session",
				Usage:   "Path of the saved login session",
				Value:   defaultSessionPath(),
				EnvVars: []string{"PERIODCTL_SESSION"},
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Answer yes to confirmation prompts",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Check credentials and save the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"PERIODCTL_PASSWORD"}},
				},
				Before: r.open,
				After:  r.close,
				Action: r.login,
			},
			{
				Name:   "logout",
				Usage:  "Remove the saved session",
				Action: r.logout,
			},
			{
				Name:   "period",
				Usage:  "Create, delete and resume period snapshots",
				Before: r.open,
				After:  r.close,
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Copy the base ledgers into a new period",
						Flags:  []cli.Flag{periodFlag(), sectionsFlag()},
						Action: r.createPeriod,
					},
					{
						Name:   "delete",
						Usage:  "Delete a period snapshot and revoke it from every user",
						Flags:  []cli.Flag{periodFlag(), sectionsFlag()},
						Action: r.deletePeriod,
					},
					{
						Name:  "resume",
						Usage: "Resume an interrupted or partially failed period job",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "job", Required: true, Usage: "Period job id"},
						},
						Action: r.resumeJob,
					},
					{
						Name:   "jobs",
						Usage:  "List period jobs",
						Action: r.listJobs,
					},
				},
			},
			{
				Name:   "opening",
				Usage:  "Carry stock between periods",
				Before: r.open,
				After:  r.close,
				Subcommands: []*cli.Command{
					{
						Name:  "copy",
						Usage: "Set each material's opening in --to to its closing in --from",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "section", Required: true},
							&cli.StringFlag{Name: "from", Required: true, Usage: "Source period key, e.g. september_2025"},
							&cli.StringFlag{Name: "to", Required: true, Usage: "Target period key, e.g. october_2025"},
						},
						Action: r.copyOpening,
					},
				},
			},
			{
				Name:   "recipe",
				Usage:  "Import recipes from spreadsheets",
				Before: r.open,
				After:  r.close,
				Subcommands: []*cli.Command{
					{
						Name:  "import",
						Usage: "Merge every recipe tab of a workbook into the matching products",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "section", Required: true},
							&cli.StringFlag{Name: "file", Usage: "Recipe workbook (.xlsx)"},
							&cli.StringFlag{Name: "sheet-id", Usage: "Google spreadsheet id, instead of --file"},
						},
						Action: r.importRecipes,
					},
				},
			},
			{
				Name:   "report",
				Usage:  "Render reports to files",
				Before: r.open,
				After:  r.close,
				Subcommands: []*cli.Command{
					{
						Name:  "daily",
						Usage: "Write the daily consumption report of a section",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "section", Required: true},
							&cli.IntFlag{Name: "day", Required: true},
							&cli.StringFlag{Name: "period", Usage: "Period key; defaults to the session's current period"},
							&cli.StringFlag{Name: "format", Value: "xlsx", Usage: "xlsx or pdf"},
							&cli.StringFlag{Name: "out", Usage: "Output path; defaults to the report file name"},
						},
						Action: r.dailyReport,
					},
				},
			},
		},
	}
}

func periodFlag() cli.Flag {
	return &cli.StringFlag{Name: "period", Required: true, Usage: `Period key or display, e.g. october_2025 or "October, 2025"`}
}

func sectionsFlag() cli.Flag {
	return &cli.StringSliceFlag{Name: "section", Usage: "Limit to these sections; defaults to all"}
}

// open loads configuration and wires the services for the command.
func (r *runner) open(c *cli.Context) error {
	if r.app != nil {
		return nil
	}
	l, err := logger.NewConsole(c.Bool("verbose"))
	if err != nil {
		return err
	}
	r.logger = l

	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}
	a, err := app.New(c.Context, cfg, r.logger)
	if err != nil {
		return err
	}
	r.app = a
	return nil
}

func (r *runner) close(*cli.Context) error {
	if r.app != nil {
		r.app.Close()
		r.app = nil
	}
	_ = r.logger.Sync()
	return nil
}
