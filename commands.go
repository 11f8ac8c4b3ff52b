package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/env"
	"github.com/metcalfc/folio/internal/progress"
	"github.com/metcalfc/folio/internal/session"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 2, 64) + "%"
}

func documentArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("exactly one document is expected, got %d", cmd.Args().Len())
	}
	return cmd.Args().First(), nil
}

func readDocument(ctx context.Context, cmd *cli.Command) (err error) {
	e := env.EnvFromContext(ctx)

	path, err := documentArg(cmd)
	if err != nil {
		return err
	}
	store, err := e.Store()
	if err != nil {
		return err
	}
	s, err := session.Open(path, session.Options{
		Reader:   e.Cfg.Reader,
		FontSize: int(cmd.Int("font")),
		Store:    store,
		Fresh:    cmd.Bool("fresh"),
		Log:      e.Log,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	return runViewer(ctx, s, e.Log)
}

func inspectDocument(ctx context.Context, cmd *cli.Command) error {
	e := env.EnvFromContext(ctx)

	path, err := documentArg(cmd)
	if err != nil {
		return err
	}
	s, err := session.Open(path, session.Options{
		Reader:   e.Cfg.Reader,
		FontSize: int(cmd.Int("font")),
		Fresh:    true,
		Log:      e.Log,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Index(ctx); err != nil {
		return err
	}
	s.Refresh()

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	doc := s.Document()
	tr := s.Tracker()
	fmt.Fprintf(out, "%s (%s): %d sections, %d runes, %d locations, %d chapters\n",
		doc.Title, doc.Format, len(doc.Sections), doc.Runes(), tr.Boundaries().Markers(), len(tr.Chapters()))

	t := newTable("#", "Section", "Start", "End", "Share")
	for _, r := range s.Ranges() {
		t.Row(strconv.Itoa(r.Section), r.Href, percent(r.Start), percent(r.End), percent(r.Width()))
	}
	fmt.Fprintln(out, t.Render())

	if chapters := tr.Chapters(); len(chapters) > 0 {
		anchorPct := progress.SafeAnchorPercentage(doc.AnchorPercentage)
		t = newTable("#", "Chapter", "Section", "Start", "End")
		for i, ch := range chapters {
			start, end, ok := progress.ChapterRange(chapters, i, tr.Boundaries(), anchorPct)
			if !ok {
				t.Row(strconv.Itoa(i), ch.Label, strconv.Itoa(ch.Section), "-", "-")
				continue
			}
			t.Row(strconv.Itoa(i), ch.Label, strconv.Itoa(ch.Section), percent(start), percent(end))
		}
		fmt.Fprintln(out, t.Render())
	}

	if n := int(cmd.Int("simulate")); n > 0 {
		return simulate(out, s, n, e.Log)
	}
	return nil
}

func simulate(out io.Writer, s *session.Session, n int, log *zap.Logger) error {
	start := s.Snapshot()
	steps, regressions := s.Simulate(n)
	end := s.Snapshot()
	fmt.Fprintf(out, "Turned %d pages: %s -> %s\n", steps, percent(start.Percentage), percent(end.Percentage))
	if len(regressions) == 0 {
		fmt.Fprintln(out, "Progress never went back")
		return nil
	}
	t := newTable("Step", "Anchor", "From", "To")
	for _, r := range regressions {
		t.Row(strconv.Itoa(r.Step), r.Anchor, percent(r.From), percent(r.To))
	}
	fmt.Fprintln(out, t.Render())
	log.Warn("Progress regressions detected", zap.Int("count", len(regressions)))
	return fmt.Errorf("progress went back %d times", len(regressions))
}

func listPositions(ctx context.Context, cmd *cli.Command) error {
	e := env.EnvFromContext(ctx)

	store, err := e.Store()
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No saved positions")
		return nil
	}
	t := newTable("File", "Progress", "Chapter", "Updated", "Hash")
	for _, en := range entries {
		t.Row(en.File, percent(en.Percentage), en.Chapter, en.UpdatedAt.Local().Format("2006-01-02 15:04"), en.Hash[:min(8, len(en.Hash))])
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	e := env.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		e.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(e.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	e.Log.Debug("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
