// Where: internal/app/app_test.go
// What: CLI-level tests over the command dispatcher.
// Why: Exercise commands end to end with fakes instead of real backends.
package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/buildfleet/imx/internal/dockerx"
	"github.com/buildfleet/imx/internal/interaction"
	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/publish"
	"github.com/docker/docker/api/types/image"
)

func setupApp(t *testing.T) (string, *bytes.Buffer, Dependencies) {
	t.Helper()
	work := t.TempDir()
	t.Setenv("IMX_CONFIG_HOME", filepath.Join(work, "config-home"))
	t.Setenv("IMX_CONFIG_PATH", "")
	t.Setenv("IMX_MATRIX", "")

	out := &bytes.Buffer{}
	deps := Dependencies{
		WorkDir: work,
		Out:     out,
		Now:     func() time.Time { return time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC) },
	}
	return work, out, deps
}

func writeMatrix(t *testing.T, work string, m matrix.Matrix) string {
	t.Helper()
	path := filepath.Join(work, "image-matrix.yaml")
	if err := matrix.Save(path, m); err != nil {
		t.Fatalf("write matrix: %v", err)
	}
	return path
}

func stubConfirmation(t *testing.T, tty, answer bool) {
	t.Helper()
	origTerminal := isTerminal
	origPrompt := promptYesNo
	isTerminal = func(*os.File) bool { return tty }
	promptYesNo = func(string) (bool, error) { return answer, nil }
	t.Cleanup(func() {
		isTerminal = origTerminal
		promptYesNo = origPrompt
	})
}

type fakePrompter struct {
	answers []string
}

func (p *fakePrompter) next() string {
	if len(p.answers) == 0 {
		return ""
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer
}

func (p *fakePrompter) Input(string, []string) (string, error)  { return p.next(), nil }
func (p *fakePrompter) Select(string, []string) (string, error) { return p.next(), nil }
func (p *fakePrompter) SelectValue(string, []interaction.SelectOption) (string, error) {
	return p.next(), nil
}

type fakeResolver struct {
	pins map[string]string
	err  error
}

func (r *fakeResolver) ResolveAll(ctx context.Context, m matrix.Matrix) (map[string]string, error) {
	return r.pins, r.err
}

type fakeRunner struct {
	calls [][]string
}

func (r *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil
}

func (r *fakeRunner) RunOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, nil
}

type fakeDockerClient struct {
	tags []string
}

func (c *fakeDockerClient) ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error) {
	images := make([]image.Summary, 0, len(c.tags))
	for _, tag := range c.tags {
		images = append(images, image.Summary{RepoTags: []string{tag}})
	}
	return images, nil
}

type fakeS3 struct {
	objects map[string][]byte
}

func (s *fakeS3) ListBuckets(ctx context.Context) ([]string, error) { return nil, nil }
func (s *fakeS3) CreateBucket(ctx context.Context, name string) error {
	return nil
}
func (s *fakeS3) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = body
	return nil
}

type fakeState struct {
	records []publish.BuildRecord
}

func (s *fakeState) ListTables(ctx context.Context) ([]string, error) { return nil, nil }
func (s *fakeState) CreateTable(ctx context.Context, name string) error {
	return nil
}
func (s *fakeState) PutRecord(ctx context.Context, table string, record publish.BuildRecord) error {
	s.records = append(s.records, record)
	return nil
}

func TestRunInitCreatesMatrix(t *testing.T) {
	work, out, deps := setupApp(t)

	if code := Run([]string{"init"}, deps); code != 0 {
		t.Fatalf("init failed: %d\n%s", code, out.String())
	}
	if _, err := os.Stat(filepath.Join(work, "image-matrix.yaml")); err != nil {
		t.Fatalf("matrix not created: %v", err)
	}

	if code := Run([]string{"init"}, deps); code != 1 {
		t.Fatalf("second init must refuse without --force")
	}
	if code := Run([]string{"init", "--force"}, deps); code != 0 {
		t.Fatalf("init --force failed:\n%s", out.String())
	}
}

func TestRunLintCleanMatrix(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	if code := Run([]string{"lint"}, deps); code != 0 {
		t.Fatalf("lint failed: %d\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "ok (5 variant(s))") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunLintReportsPairDrift(t *testing.T) {
	work, out, deps := setupApp(t)
	m := matrix.Default()
	for i := range m.Variants {
		if m.Variants[i].Name == "peft-gpu-bnb-multi-source" {
			m.Variants[i].OtherDependenciesSource = matrix.SourceLatestRelease
		}
	}
	writeMatrix(t, work, m)

	if code := Run([]string{"lint"}, deps); code != 1 {
		t.Fatalf("expected lint failure\n%s", out.String())
	}
	if !strings.Contains(out.String(), "other_dependencies_source differs") {
		t.Fatalf("drift not reported:\n%s", out.String())
	}
}

func TestRunListShowsVariants(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	if code := Run([]string{"list"}, deps); code != 0 {
		t.Fatalf("list failed:\n%s", out.String())
	}
	for _, name := range []string{"peft-cpu", "peft-gpu-bnb-source", "peft-gpu-bnb-multi-source", "peft-gpu-bnb-latest"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("list is missing %s:\n%s", name, out.String())
		}
	}
}

func TestRunRenderWritesArtifacts(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	if code := Run([]string{"render"}, deps); code != 0 {
		t.Fatalf("render failed:\n%s", out.String())
	}
	for _, name := range []string{"docker-bake.json", "README.md"} {
		if _, err := os.Stat(filepath.Join(work, ".imx", name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}
}

func TestRunRenderOutDirKeepsResolvedPins(t *testing.T) {
	work, out, deps := setupApp(t)
	m := matrix.Default()
	m.TrackedPackages = []string{"transformers"}
	writeMatrix(t, work, m)
	deps.Resolver = &fakeResolver{pins: map[string]string{"transformers": "4.44.0"}}

	if code := Run([]string{"resolve"}, deps); code != 0 {
		t.Fatalf("resolve failed:\n%s", out.String())
	}

	outDir := filepath.Join(work, "artifacts")
	if code := Run([]string{"render", "--out-dir", outDir}, deps); code != 0 {
		t.Fatalf("render failed:\n%s", out.String())
	}

	bake, err := os.ReadFile(filepath.Join(outDir, "docker-bake.json"))
	if err != nil {
		t.Fatalf("read bake file: %v", err)
	}
	if !strings.Contains(string(bake), `"TRANSFORMERS_VERSION": "4.44.0"`) {
		t.Fatalf("pins from the matrix-side lock not applied:\n%s", bake)
	}
}

func TestRunRenderRelativeOutDir(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	if code := Run([]string{"render", "--out-dir", "artifacts"}, deps); code != 0 {
		t.Fatalf("render failed:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(work, "artifacts", "docker-bake.json")); err != nil {
		t.Fatalf("relative out-dir must resolve against the working directory: %v", err)
	}
}

func TestRunRenderRefusesDirtyMatrix(t *testing.T) {
	work, out, deps := setupApp(t)
	m := matrix.Default()
	m.Variants[0].Pair = "no-such-variant"
	writeMatrix(t, work, m)

	if code := Run([]string{"render"}, deps); code != 1 {
		t.Fatalf("expected render refusal\n%s", out.String())
	}
	if !strings.Contains(out.String(), "refusing to render") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunResolveWritesLock(t *testing.T) {
	work, out, deps := setupApp(t)
	m := matrix.Default()
	m.TrackedPackages = []string{"transformers"}
	writeMatrix(t, work, m)
	deps.Resolver = &fakeResolver{pins: map[string]string{"transformers": "4.44.0"}}

	if code := Run([]string{"resolve"}, deps); code != 0 {
		t.Fatalf("resolve failed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "transformers 4.44.0") {
		t.Fatalf("pin not reported:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(work, ".imx", "releases.lock.yaml")); err != nil {
		t.Fatalf("lock not written: %v", err)
	}
}

func TestRunResolveDryRunSkipsLock(t *testing.T) {
	work, out, deps := setupApp(t)
	m := matrix.Default()
	m.TrackedPackages = []string{"transformers"}
	writeMatrix(t, work, m)
	deps.Resolver = &fakeResolver{pins: map[string]string{"transformers": "4.44.0"}}

	if code := Run([]string{"resolve", "--dry-run"}, deps); code != 0 {
		t.Fatalf("resolve failed:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(work, ".imx", "releases.lock.yaml")); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write the lock: %v", err)
	}
}

func TestRunResolveNothingToResolve(t *testing.T) {
	work, out, deps := setupApp(t)
	m := matrix.Default()
	for i := range m.Variants {
		m.Variants[i].OtherDependenciesSource = matrix.SourceMainBranch
	}
	writeMatrix(t, work, m)
	deps.Resolver = &fakeResolver{err: errors.New("must not be called")}

	if code := Run([]string{"resolve"}, deps); code != 0 {
		t.Fatalf("resolve failed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "nothing to resolve") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunBuildInvokesBake(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())
	runner := &fakeRunner{}
	deps.Runner = runner

	if code := Run([]string{"build", "gpu", "--no-cache"}, deps); code != 0 {
		t.Fatalf("build failed:\n%s", out.String())
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected one bake invocation, got %v", runner.calls)
	}
	joined := strings.Join(runner.calls[0], " ")
	if !strings.Contains(joined, "buildx bake") ||
		!strings.Contains(joined, "--no-cache") ||
		!strings.HasSuffix(joined, " gpu") {
		t.Fatalf("unexpected bake args: %s", joined)
	}
	if _, err := os.Stat(filepath.Join(work, ".imx", "docker-bake.json")); err != nil {
		t.Fatalf("bake file not rendered before build: %v", err)
	}
}

func TestRunBuildRefusesDirtyMatrix(t *testing.T) {
	work, out, deps := setupApp(t)
	m := matrix.Default()
	m.Variants[0].Pair = "no-such-variant"
	writeMatrix(t, work, m)
	deps.Runner = &fakeRunner{}

	if code := Run([]string{"build"}, deps); code != 1 {
		t.Fatalf("expected build refusal\n%s", out.String())
	}
}

func TestRunBuildCheckReportsMissing(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())
	deps.DockerClient = func() (dockerx.Client, error) {
		return &fakeDockerClient{tags: []string{"peft-ci-peft-cpu:latest"}}, nil
	}

	if code := Run([]string{"build", "--check"}, deps); code != 1 {
		t.Fatalf("expected missing images to fail the check\n%s", out.String())
	}
	text := out.String()
	if !strings.Contains(text, "peft-cpu") || !strings.Contains(text, "present") {
		t.Fatalf("present image not reported:\n%s", text)
	}
	if !strings.Contains(text, "4 image(s) missing") {
		t.Fatalf("missing count not reported:\n%s", text)
	}
}

func TestRunBuildCheckAllPresent(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())
	deps.DockerClient = func() (dockerx.Client, error) {
		return &fakeDockerClient{tags: []string{"peft-ci-peft-cpu:latest"}}, nil
	}

	if code := Run([]string{"build", "peft-cpu", "--check"}, deps); code != 0 {
		t.Fatalf("check failed:\n%s", out.String())
	}
}

func TestRunPublish(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())
	s3 := &fakeS3{}
	state := &fakeState{}
	deps.Storage = func(ctx context.Context, opts publish.Options) (publish.S3API, publish.StateAPI, error) {
		return s3, state, nil
	}

	code := Run([]string{"publish", "--yes", "--bucket", "imx-artifacts", "--table", "imx-builds"}, deps)
	if code != 0 {
		t.Fatalf("publish failed:\n%s", out.String())
	}
	if len(s3.objects) != 2 {
		t.Fatalf("expected two uploaded artifacts, got %v", s3.objects)
	}
	if len(state.records) != 5 {
		t.Fatalf("expected one record per variant, got %d", len(state.records))
	}
	if !strings.Contains(out.String(), "publish complete (run ") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunPublishRequiresYesWithoutTTY(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())
	stubConfirmation(t, false, false)
	deps.Storage = func(ctx context.Context, opts publish.Options) (publish.S3API, publish.StateAPI, error) {
		return &fakeS3{}, &fakeState{}, nil
	}

	code := Run([]string{"publish", "--bucket", "imx-artifacts"}, deps)
	if code != 1 || !strings.Contains(out.String(), "requires --yes") {
		t.Fatalf("expected non-interactive refusal:\n%s", out.String())
	}
}

func TestRunPublishRequiresBucket(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())
	deps.Storage = func(ctx context.Context, opts publish.Options) (publish.S3API, publish.StateAPI, error) {
		return &fakeS3{}, &fakeState{}, nil
	}

	if code := Run([]string{"publish", "--yes"}, deps); code != 1 {
		t.Fatalf("expected bucket requirement\n%s", out.String())
	}
}

func TestRunVariantAddWithFlags(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	code := Run([]string{
		"variant", "add", "peft-gpu-xpu",
		"--compute", "gpu",
		"--primary-source", "main-branch-source",
		"--deps-source", "latest-published-release",
	}, deps)
	if code != 0 {
		t.Fatalf("variant add failed:\n%s", out.String())
	}

	m, err := matrix.Load(filepath.Join(work, "image-matrix.yaml"))
	if err != nil {
		t.Fatalf("reload matrix: %v", err)
	}
	added, ok := m.Find("peft-gpu-xpu")
	if !ok {
		t.Fatalf("variant not persisted")
	}
	if added.OtherDependenciesSource != matrix.SourceLatestRelease {
		t.Fatalf("unexpected variant: %#v", added)
	}
}

func TestRunVariantAddPrompts(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())
	deps.Prompter = &fakePrompter{answers: []string{
		"peft-gpu-new",
		"gpu",
		"main-branch-source",
		"main-branch-source",
	}}

	if code := Run([]string{"variant", "add"}, deps); code != 0 {
		t.Fatalf("variant add failed:\n%s", out.String())
	}
	m, err := matrix.Load(filepath.Join(work, "image-matrix.yaml"))
	if err != nil {
		t.Fatalf("reload matrix: %v", err)
	}
	if _, ok := m.Find("peft-gpu-new"); !ok {
		t.Fatalf("prompted variant not persisted")
	}
}

func TestRunVariantAddRejectsDuplicate(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	code := Run([]string{
		"variant", "add", "peft-cpu",
		"--compute", "cpu",
		"--primary-source", "main-branch-source",
		"--deps-source", "main-branch-source",
	}, deps)
	if code != 1 || !strings.Contains(out.String(), "already exists") {
		t.Fatalf("expected duplicate refusal:\n%s", out.String())
	}
}

func TestRunVariantAddRefusesBrokenPair(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	code := Run([]string{
		"variant", "add", "peft-gpu-claimant",
		"--compute", "gpu",
		"--primary-source", "main-branch-source",
		"--deps-source", "main-branch-source",
		"--pair", "peft-gpu-bnb-multi-source",
	}, deps)
	if code != 1 || !strings.Contains(out.String(), "matrix would have errors") {
		t.Fatalf("expected pair conflict refusal:\n%s", out.String())
	}

	m, err := matrix.Load(filepath.Join(work, "image-matrix.yaml"))
	if err != nil {
		t.Fatalf("reload matrix: %v", err)
	}
	if _, ok := m.Find("peft-gpu-claimant"); ok {
		t.Fatalf("refused variant must not be persisted")
	}
}

func TestRunVariantRemove(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	if code := Run([]string{"variant", "remove", "peft-gpu", "--yes"}, deps); code != 0 {
		t.Fatalf("variant remove failed:\n%s", out.String())
	}
	m, err := matrix.Load(filepath.Join(work, "image-matrix.yaml"))
	if err != nil {
		t.Fatalf("reload matrix: %v", err)
	}
	if _, ok := m.Find("peft-gpu"); ok {
		t.Fatalf("variant still present")
	}
}

func TestRunVariantRemoveProtectsPairs(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	code := Run([]string{"variant", "remove", "peft-gpu-bnb-multi-source", "--yes"}, deps)
	if code != 1 || !strings.Contains(out.String(), "is paired with") {
		t.Fatalf("expected pair protection:\n%s", out.String())
	}

	code = Run([]string{"variant", "remove", "peft-gpu-bnb-multi-source", "--yes", "--force"}, deps)
	if code != 0 {
		t.Fatalf("forced remove failed:\n%s", out.String())
	}
	m, err := matrix.Load(filepath.Join(work, "image-matrix.yaml"))
	if err != nil {
		t.Fatalf("reload matrix: %v", err)
	}
	source, ok := m.Find("peft-gpu-bnb-source")
	if !ok || source.Pair != "" {
		t.Fatalf("dangling pair reference not cleared: %#v", source)
	}
}

func TestRunConfigSetAndShow(t *testing.T) {
	_, out, deps := setupApp(t)

	if code := Run([]string{"config", "set", "registry", "ghcr.io/acme"}, deps); code != 0 {
		t.Fatalf("config set failed:\n%s", out.String())
	}
	out.Reset()
	if code := Run([]string{"config", "show"}, deps); code != 0 {
		t.Fatalf("config show failed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "ghcr.io/acme") {
		t.Fatalf("registry not shown:\n%s", out.String())
	}
}

func TestRunConfigSetUnknownKey(t *testing.T) {
	_, out, deps := setupApp(t)
	if code := Run([]string{"config", "set", "nope", "x"}, deps); code != 1 {
		t.Fatalf("expected unknown key error:\n%s", out.String())
	}
}

func TestRunNoArgsShowsInfo(t *testing.T) {
	work, out, deps := setupApp(t)
	writeMatrix(t, work, matrix.Default())

	if code := Run(nil, deps); code != 0 {
		t.Fatalf("info failed:\n%s", out.String())
	}
	text := out.String()
	if !strings.Contains(text, "Image variant matrix") || !strings.Contains(text, "bitsandbytes") {
		t.Fatalf("unexpected info output:\n%s", text)
	}
}

func TestRunNoArgsWithoutMatrixSuggestsInit(t *testing.T) {
	_, out, deps := setupApp(t)

	if code := Run(nil, deps); code != 0 {
		t.Fatalf("info must not fail without a matrix:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "imx init") {
		t.Fatalf("init hint missing:\n%s", out.String())
	}
}

func TestRunVersion(t *testing.T) {
	_, out, deps := setupApp(t)
	if code := Run([]string{"version"}, deps); code != 0 {
		t.Fatalf("version failed:\n%s", out.String())
	}
	if strings.TrimSpace(out.String()) == "" {
		t.Fatalf("version printed nothing")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	_, out, deps := setupApp(t)
	if code := Run([]string{"frobnicate"}, deps); code != 1 {
		t.Fatalf("expected parse failure:\n%s", out.String())
	}
}
