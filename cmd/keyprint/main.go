// Package main provides the CLI entrypoint for keyprint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"keyprint/internal/apiclient"
	"keyprint/internal/config"
	"keyprint/internal/features"
	"keyprint/internal/model"
	"keyprint/internal/payload"
	"keyprint/internal/phrase"
	"keyprint/internal/session"
	"keyprint/internal/stats"
	"keyprint/internal/statsui"
	"keyprint/internal/store"
	"keyprint/internal/tui"
)

const (
	defaultUser         = ""
	defaultMinPhraseLen = 20
	defaultCurveWindow  = 20
	defaultAPIURL       = "http://localhost:5000"
)

var (
	captureUser         string
	capturePhraseFile   string
	captureMinPhraseLen int
	captureRegister     bool
	captureAPIURL       string

	statsUser        string
	statsSince       string
	statsLast        int
	statsCurveWindow int

	reportUser        string
	reportSince       string
	reportLast        int
	reportCurveWindow int
	reportLetters     string

	ingestUser string

	exportUser string
	exportOut  string

	apiURL  string
	apiUser string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keyprint",
		Short:         "Keystroke dynamics capture and analysis",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCaptureCmd,
	}

	rootCmd.Flags().StringVar(&captureUser, "user", defaultUser, "username for captured samples")
	rootCmd.Flags().StringVar(&capturePhraseFile, "phrase-file", "", "path to phrase file (default: XDG config)")
	rootCmd.Flags().IntVar(&captureMinPhraseLen, "min-phrase-len", defaultMinPhraseLen, "minimum phrase length in runes")
	rootCmd.Flags().BoolVar(&captureRegister, "register", false, "register completed samples with the backend")
	rootCmd.Flags().StringVar(&captureAPIURL, "api-url", defaultAPIURL, "backend base URL")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newIdentifyCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

func runCaptureCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "user", &captureUser, fileCfg.Capture.User)
	applyStringConfig(cmd, "phrase-file", &capturePhraseFile, fileCfg.Capture.PhraseFile)
	applyIntConfig(cmd, "min-phrase-len", &captureMinPhraseLen, fileCfg.Capture.MinPhraseLen)
	applyStringConfig(cmd, "api-url", &captureAPIURL, fileCfg.API.URL)

	if captureMinPhraseLen < 0 {
		return fmt.Errorf("--min-phrase-len must be >= 0")
	}
	if captureRegister && strings.TrimSpace(captureUser) == "" {
		return fmt.Errorf("--user is required with --register")
	}

	phrasePath := capturePhraseFile
	if phrasePath == "" {
		phrasePath = config.DefaultPhrasePath()
	}
	phrases, err := phrase.LoadOrDefault(phrasePath)
	if err != nil {
		return fmt.Errorf("failed to load phrases: %w", err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	var client *apiclient.Client
	if captureRegister {
		client = apiclient.New(captureAPIURL)
	}

	model := tui.NewModel(captureUser, st, client, phrase.NewPicker(), phrases, captureMinPhraseLen)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsUser, "user", "", "username filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N samples")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)

	cfg, err := buildStatsConfig(statsUser, statsSince, statsLast, statsCurveWindow)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	model := statsui.NewModel(st, cfg)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a plain-text stats report",
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportUser, "user", "", "username filter")
	cmd.Flags().StringVar(&reportSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&reportLast, "last", 0, "limit to last N samples")
	cmd.Flags().IntVar(&reportCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&reportLetters, "letters", "", "letters for per-letter error curves (comma separated)")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "curve-window", &reportCurveWindow, fileCfg.Stats.CurveWindow)

	cfg, err := buildStatsConfig(reportUser, reportSince, reportLast, reportCurveWindow)
	if err != nil {
		return err
	}
	cfg.Letters = reportLetters

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderReport(out, report, cfg.CurveWindow, outputWidth()); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Import captured event logs into the sample store",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngestCmd,
	}
	cmd.Flags().StringVar(&ingestUser, "user", "", "username override for imported samples")
	return cmd
}

func runIngestCmd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	for _, path := range args {
		sample, err := readSample(path)
		if err != nil {
			return err
		}
		username := sample.Username
		if ingestUser != "" {
			username = ingestUser
		}
		rec, letters := replaySample(username, sample)
		id, err := st.InsertSample(ctx, rec, letters)
		if err != nil {
			return fmt.Errorf("failed to store sample from %s: %w", path, err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: sample %d (%d events, %.0f CPM)\n",
			path, id, len(sample.Events), rec.Features.TypingSpeed); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// replaySample feeds an externally captured event log through the
// session core to reproduce the counters and timing features that a
// live capture would have produced.
func replaySample(username string, sample payload.Sample) (model.SampleRecord, []model.LetterCount) {
	var clock int64
	sess := session.NewWithClock(sample.Text, func() int64 { return clock })

	var typed []rune
	for _, ev := range sample.Events {
		if ev.Timestamp > clock {
			clock = ev.Timestamp
		}
		if ev.Type == model.EventRelease {
			sess.RecordRelease(ev.Key, ev.Code, ev.Timestamp, ev.NativeCode)
			continue
		}
		sess.RecordPress(ev.Key, ev.Code, ev.Timestamp, ev.NativeCode)
		switch {
		case ev.Key == "Backspace":
			if len(typed) > 0 {
				typed = typed[:len(typed)-1]
				sess.ApplyText(string(typed))
			}
		case len([]rune(ev.Key)) == 1:
			typed = append(typed, []rune(ev.Key)[0])
			sess.ApplyText(string(typed))
		}
	}
	// Logs without per-key text (press-only captures of modifier-heavy
	// input) still carry the authoritative final text.
	if string(typed) != sample.Text {
		sess.ApplyText(sample.Text)
	}

	startMs := sess.StartMs()
	endMs := sess.EndMs()
	if endMs == 0 {
		endMs = clock
	}
	elapsed := endMs - startMs
	if elapsed < 0 {
		elapsed = 0
	}
	feats := features.Extract(sess.Events(), len([]rune(sample.Text)), float64(elapsed))

	rec := model.SampleRecord{
		Username:      username,
		StartedAt:     time.UnixMilli(startMs),
		EndedAt:       time.UnixMilli(endMs),
		ReferenceText: sample.Text,
		TypedText:     sess.Typed(),
		DurationMs:    elapsed,
		Counters:      sess.Counters(),
		Features:      feats,
	}

	letterStats := sess.LetterStats()
	letters := make([]model.LetterCount, 0, len(letterStats))
	for l, stat := range letterStats {
		letters = append(letters, model.LetterCount{Letter: l, Total: stat.Total, Errors: stat.Errors})
	}
	return rec, letters
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Validate an event log and write it in wire form",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportUser, "user", "", "username to stamp into the payload")
	cmd.Flags().StringVar(&exportOut, "out", "", "output path (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	sample, err := readSample(args[0])
	if err != nil {
		return err
	}
	if exportUser != "" {
		sample.Username = exportUser
	}
	data, err := sample.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	if exportOut == "" {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(data)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(exportOut, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOut, err)
	}
	return nil
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <file>",
		Short: "Register a captured event log with the backend",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegisterCmd,
	}
	addAPIFlags(cmd)
	return cmd
}

func runRegisterCmd(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	sample, err := readSample(args[0])
	if err != nil {
		return err
	}
	if apiUser != "" {
		sample.Username = apiUser
	}
	if strings.TrimSpace(sample.Username) == "" {
		return fmt.Errorf("--user is required when the log carries no username")
	}
	res, err := client.Register(context.Background(), sample)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d samples on server)\n", res.Message, res.SamplesCount)
	return err
}

func newIdentifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify <file>",
		Short: "Identify the typist of a captured event log",
		Args:  cobra.ExactArgs(1),
		RunE:  runIdentifyCmd,
	}
	addAPIFlags(cmd)
	return cmd
}

func runIdentifyCmd(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	sample, err := readSample(args[0])
	if err != nil {
		return err
	}
	res, err := client.Identify(context.Background(), sample)
	if err != nil {
		return fmt.Errorf("identify failed: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(res.Matches) == 0 {
		_, err := fmt.Fprintln(out, "No matches.")
		return err
	}
	for i, match := range res.Matches {
		if _, err := fmt.Fprintf(out, "%d. %s  similarity=%.3f (min %.3f, max %.3f)  confidence=%.3f  samples=%d\n",
			i+1, match.Username, match.Similarity, match.MinSimilarity, match.MaxSimilarity,
			match.Confidence, match.SamplesCount); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users [username]",
		Short: "List registered users or show one profile",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runUsersCmd,
	}
	addAPIFlags(cmd)
	return cmd
}

func runUsersCmd(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		detail, err := client.UserDetail(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch user: %w", err)
		}
		var pretty json.RawMessage = detail
		data, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format user: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	res, err := client.Users(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}
	for _, user := range res.Users {
		if _, err := fmt.Fprintf(out, "%s  samples=%d  updated=%s\n",
			user.Username, user.SamplesCount, user.LastUpdated); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	svc, err := client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch service stats: %w", err)
	}
	_, err = fmt.Fprintf(out, "Total: %d users, %d samples (avg %.1f per user)\n",
		svc.TotalUsers, svc.TotalSamples, svc.AvgSamplesPerUser)
	return err
}

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Args:  cobra.NoArgs,
		RunE:  runHealthCmd,
	}
	addAPIFlags(cmd)
	return cmd
}

func runHealthCmd(cmd *cobra.Command, _ []string) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	res, err := client.Health(context.Background())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", res.Status, res.Timestamp)
	return err
}

func addAPIFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&apiURL, "api-url", defaultAPIURL, "backend base URL")
	cmd.Flags().StringVar(&apiUser, "user", "", "username override")
}

func newAPIClient(cmd *cobra.Command) (*apiclient.Client, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "api-url", &apiURL, fileCfg.API.URL)
	return apiclient.New(apiURL), nil
}

func readSample(path string) (payload.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return payload.Sample{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sample, err := payload.Decode(data)
	if err != nil {
		return payload.Sample{}, fmt.Errorf("invalid event log %s: %w", path, err)
	}
	return sample, nil
}

func buildStatsConfig(user, since string, last, curveWindow int) (model.StatsConfig, error) {
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if curveWindow < 1 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be >= 1")
	}
	return model.StatsConfig{
		User:        user,
		Since:       sinceTime,
		Last:        last,
		CurveWindow: curveWindow,
	}, nil
}

func outputWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keyprint configuration
# Uncomment a value to enable it. CLI flags override config values.

[capture]
# user = ""                 # Username for captured samples
# phrase-file = ""          # Path to phrase file
# min-phrase-len = %d       # Minimum phrase length in runes

[api]
# url = %q  # Backend base URL

[stats]
# curve-window = %d         # Moving average window
`,
		defaultMinPhraseLen,
		defaultAPIURL,
		defaultCurveWindow,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
