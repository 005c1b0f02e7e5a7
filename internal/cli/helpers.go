package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/slashdash/sabe/internal/config"
	"github.com/slashdash/sabe/internal/db"
	"github.com/slashdash/sabe/internal/gate"
	"github.com/slashdash/sabe/internal/hacks"
	"github.com/slashdash/sabe/internal/ledger"
	"github.com/slashdash/sabe/internal/output"
	"github.com/slashdash/sabe/internal/session"
)

func loadConfig() (*config.Config, error) {
	project, err := projectPath()
	if err != nil {
		return nil, err
	}
	return config.Load(config.LoadOptions{
		ProjectDir:        project,
		ProjectConfigPath: flagConfig,
	})
}

func newLogger(cfg *config.Config) *log.Logger {
	level := log.InfoLevel
	if parsed, err := log.ParseLevel(cfg.Log.Level); err == nil {
		level = parsed
	}
	if flagVerbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: false,
	})
}

// openSession resolves flags and config into a ready pipeline session. The
// caller must Close the returned database.
func openSession() (*session.Session, *db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	project, err := projectPath()
	if err != nil {
		return nil, nil, err
	}

	store, err := db.OpenAndMigrate(GetDB())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	rec, err := resolveSessionRecord(store, cfg, project)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	logger := newLogger(cfg)
	injector := buildInjector(cfg)

	s := session.New(store, rec,
		session.WithProjectDir(project),
		session.WithLogger(logger),
		session.WithInjector(injector),
		session.WithGateOptions(
			gate.WithThresholds(cfg.General.DirectThreshold, cfg.General.RejectThreshold),
			gate.WithCostLimits(cfg.Gate.MaxTokens, cfg.Gate.MaxSteps),
			gate.WithTTL(time.Duration(cfg.General.ConfirmTTLSecs)*time.Second),
			gate.WithCollaboratorTimeout(time.Duration(cfg.General.CollaboratorTimeoutMS)*time.Millisecond),
		),
		session.WithLedgerOptions(ledger.WithMaxEntries(cfg.History.MaxEntries)),
	)
	return s, store, nil
}

// resolveSessionRecord picks the stored session: an explicit --session-id
// wins, otherwise the named session for this project is resumed or created.
func resolveSessionRecord(store *db.DB, cfg *config.Config, project string) (*db.Session, error) {
	if flagSessionID != "" {
		rec, err := store.GetSession(flagSessionID)
		if err != nil {
			if errors.Is(err, db.ErrSessionNotFound) {
				return nil, fmt.Errorf("session %q not found", flagSessionID)
			}
			return nil, err
		}
		return rec, nil
	}

	name := flagSession
	if name == "" {
		name = cfg.General.SessionName
	}
	return store.ResumeOrCreateSession(name, project)
}

func buildInjector(cfg *config.Config) *hacks.Injector {
	in := hacks.NewInjector(nil)
	if !cfg.Hacks.Enabled {
		for _, h := range in.Set() {
			in.Enable(h.ID, false)
		}
		return in
	}
	if cfg.Hacks.EnableExpertPanel {
		in.Enable("expert_panel", true)
	}
	for _, id := range cfg.Hacks.Disabled {
		in.Enable(id, false)
	}
	return in
}

// renderOutcome prints one submission result in the configured format.
func renderOutcome(out *output.Writer, oc *session.Outcome) error {
	if out.Format() != output.FormatText {
		return out.Write(oc)
	}

	switch oc.Kind {
	case session.OutcomeExecuted:
		out.Success(fmt.Sprintf("%s (history #%d)", oc.Summary, oc.Seq))
	case session.OutcomePending:
		c := oc.Confirmation
		out.Text("%s: %s", c.Mode.Title(), c.Reason)
		for _, s := range c.Suggestions {
			if s.Rebuilt != "" {
				out.Text("  %d. %s  (%s)", s.Index, s.Rebuilt, s.Description)
			} else {
				out.Text("  %d. %s", s.Index, s.Description)
			}
		}
		switch {
		case c.ConfirmWord != "":
			out.Text("type %s to proceed, or n to cancel", c.ConfirmWord)
		case len(c.Suggestions) > 0:
			out.Text("pick a number, or n to cancel")
		default:
			out.Text("y to proceed, n to cancel")
		}
	case session.OutcomeRejected:
		out.Error(fmt.Errorf("%s", oc.Reason))
	}

	for _, h := range oc.Postscripts {
		out.Text("")
		out.Text("[%s] %s", h.Name, h.Postscript)
	}
	return nil
}
