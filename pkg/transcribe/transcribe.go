package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"transcript-search/pkg/domain"
	"transcript-search/pkg/srt"
)

// DefaultBinary is the external transcription CLI invoked per input file.
const DefaultBinary = "mlx_whisper"

// ModelAliases maps short model names to their Hugging Face repos.
var ModelAliases = map[string]string{
	"large":    "mlx-community/whisper-large-v3-turbo",
	"turbo":    "mlx-community/whisper-turbo",
	"parakeet": "mlx-community/parakeet-tdt_ctc-1.1b",
}

// ResolveModel turns a model alias into its repo path. Full repo paths
// (anything containing a slash) pass through unchanged.
func ResolveModel(name string) (string, error) {
	if repo, ok := ModelAliases[name]; ok {
		return repo, nil
	}
	if strings.Contains(name, "/") {
		return name, nil
	}
	return "", fmt.Errorf("unknown model %q (want large, turbo, parakeet or a full repo path)", name)
}

// CommandExecutor abstracts command execution so tests can fake the
// transcription binary.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, name string, args []string) ([]byte, error)
	LookPath(file string) (string, error)
}

// realExecutor runs actual commands.
type realExecutor struct{}

func (realExecutor) ExecuteCommand(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

func (realExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Status describes what happened to one input file.
type Status string

const (
	StatusTranscribed Status = "transcribed"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// Result is the per-input outcome of a run.
type Result struct {
	Input  string
	Stem   string
	Status Status
	Err    error
}

// Config holds the transcribe settings.
type Config struct {
	// OutputDir receives the <stem>.srt and <stem>.txt pairs.
	OutputDir string

	// Model is an alias from ModelAliases or a full repo path.
	Model string

	// Overwrite re-transcribes inputs whose output pair already exists.
	Overwrite bool

	// WordTimestamps asks the tool for word-level timing.
	WordTimestamps bool

	// Binary overrides the transcription CLI name. Defaults to DefaultBinary.
	Binary string
}

// Runner transcribes media files by shelling out to the external CLI and
// writing caption pairs from its JSON output.
type Runner struct {
	cfg      Config
	executor CommandExecutor
}

// New creates a runner that executes real commands.
func New(cfg Config) *Runner {
	return NewWithExecutor(cfg, realExecutor{})
}

// NewWithExecutor creates a runner with a custom command executor.
func NewWithExecutor(cfg Config, executor CommandExecutor) *Runner {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	return &Runner{cfg: cfg, executor: executor}
}

// Run transcribes each input sequentially. Per-input failures are recorded
// and processing continues; a missing transcription binary fails the whole
// run up front.
func (r *Runner) Run(ctx context.Context, inputs []string) ([]Result, error) {
	repo, err := ResolveModel(r.cfg.Model)
	if err != nil {
		return nil, err
	}

	if _, err := r.executor.LookPath(r.cfg.Binary); err != nil {
		return nil, fmt.Errorf("transcription tool %q not found in PATH: %w", r.cfg.Binary, err)
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var results []Result
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := r.transcribeOne(ctx, input, repo)
		results = append(results, result)

		if result.Err != nil {
			log.Printf("%s %s: %v", result.Status, result.Stem, result.Err)
		} else {
			log.Printf("%s %s", result.Status, result.Stem)
		}
	}

	return results, nil
}

// transcribeOne runs the CLI for a single input and writes its caption pair.
func (r *Runner) transcribeOne(ctx context.Context, input, repo string) Result {
	stem := Stem(input)
	srtPath := filepath.Join(r.cfg.OutputDir, stem+".srt")
	txtPath := filepath.Join(r.cfg.OutputDir, stem+".txt")

	if !r.cfg.Overwrite && fileExists(srtPath) && fileExists(txtPath) {
		return Result{Input: input, Stem: stem, Status: StatusSkipped}
	}

	tmpDir, err := os.MkdirTemp("", "transcribe-*")
	if err != nil {
		return Result{Input: input, Stem: stem, Status: StatusFailed, Err: err}
	}
	defer os.RemoveAll(tmpDir)

	args := BuildArgs(input, repo, tmpDir, r.cfg.WordTimestamps)
	out, err := r.executor.ExecuteCommand(ctx, r.cfg.Binary, args)
	if err != nil {
		return Result{Input: input, Stem: stem, Status: StatusFailed,
			Err: fmt.Errorf("run %s: %w: %s", r.cfg.Binary, err, strings.TrimSpace(string(out)))}
	}

	segments, bodyText, err := parseOutput(filepath.Join(tmpDir, stem+".json"))
	if err != nil {
		return Result{Input: input, Stem: stem, Status: StatusFailed, Err: err}
	}

	if err := os.WriteFile(srtPath, []byte(srt.Serialize(segments)), 0o644); err != nil {
		return Result{Input: input, Stem: stem, Status: StatusFailed, Err: fmt.Errorf("write SRT: %w", err)}
	}
	if err := os.WriteFile(txtPath, []byte(bodyText+"\n"), 0o644); err != nil {
		return Result{Input: input, Stem: stem, Status: StatusFailed, Err: fmt.Errorf("write TXT: %w", err)}
	}

	return Result{Input: input, Stem: stem, Status: StatusTranscribed}
}

// BuildArgs assembles the CLI arguments for one input. The tool writes a
// <stem>.json file into outputDir; the runner converts that into the caption
// pair itself so SRT serialization stays under its control.
func BuildArgs(input, modelRepo, outputDir string, wordTimestamps bool) []string {
	args := []string{
		input,
		"--model", modelRepo,
		"--output-dir", outputDir,
		"--output-format", "json",
	}
	if wordTimestamps {
		args = append(args, "--word-timestamps", "True")
	}
	return args
}

// whisperOutput is the JSON shape written by the transcription tool.
type whisperOutput struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// parseOutput reads the tool's JSON file and converts it into segments and a
// flat body text.
func parseOutput(jsonPath string) ([]domain.Segment, string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, "", fmt.Errorf("read transcription output: %w", err)
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, "", fmt.Errorf("parse transcription output: %w", err)
	}
	if len(out.Segments) == 0 {
		return nil, "", fmt.Errorf("transcription produced no segments")
	}

	segments := make([]domain.Segment, 0, len(out.Segments))
	for i, s := range out.Segments {
		segments = append(segments, domain.Segment{
			Index: i + 1,
			Start: time.Duration(math.Round(s.Start*1000)) * time.Millisecond,
			End:   time.Duration(math.Round(s.End*1000)) * time.Millisecond,
			Text:  strings.TrimSpace(s.Text),
		})
	}

	bodyText := strings.TrimSpace(out.Text)
	if bodyText == "" {
		bodyText = srt.PlainText(segments)
	}

	return segments, bodyText, nil
}

// Stem returns the base filename without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
