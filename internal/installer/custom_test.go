package installer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zangarmarsh/internal/config"
	"zangarmarsh/internal/manifest"
	"zangarmarsh/internal/runner"
)

func customTool(command string, strategy manifest.Strategy, source, companion string) manifest.ToolSpec {
	return manifest.ToolSpec{
		Command:   command,
		Package:   command,
		Backend:   manifest.BackendCustom,
		Group:     manifest.GroupCustom,
		Strategy:  strategy,
		Source:    source,
		Companion: companion,
	}
}

func newCustom(t *testing.T, f *runner.Fake, opts ...CustomOption) *Custom {
	t.Helper()
	opts = append([]CustomOption{WithWorkDir(t.TempDir()), WithBinDir(t.TempDir())}, opts...)
	return NewCustom(f, NewBrew(f), opts...)
}

func TestPipxEnsuresPipxFirst(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake()

	r := newCustom(t, f).Install(context.Background(), customTool("aws-sso-util", manifest.StrategyPipx, "", ""), specCfg)

	assert.Equal(t, OutcomeInstalled, r.Outcome)
	assert.Equal(t, []string{"brew install pipx", "pipx install aws-sso-util"}, f.Lines())
}

func TestPipxFailsWhenPipxCannotInstall(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake()
	f.On("brew install pipx", "Error", runner.ErrExit)

	r := newCustom(t, f).Install(context.Background(), customTool("aws-sso-util", manifest.StrategyPipx, "", ""), specCfg)

	assert.Equal(t, OutcomeInstallFailed, r.Outcome)
	assert.False(t, f.Ran("pipx install aws-sso-util"))
}

func TestPipxRespec(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake().AddPath("pipx", "aws-sso-util")
	f.On("pipx uninstall aws-sso-util", "Nothing to uninstall", runner.ErrExit)

	r := newCustom(t, f).Install(context.Background(), customTool("aws-sso-util", manifest.StrategyPipx, "", ""), respecCfg)

	assert.Equal(t, OutcomeInstalled, r.Outcome)
	assert.Equal(t, []string{"pipx uninstall aws-sso-util", "pipx install aws-sso-util"}, f.Lines())
}

func TestCustomAlreadyPresent(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake().AddPath("deno")

	r := newCustom(t, f).Install(context.Background(), customTool("deno", manifest.StrategyPipeScript, "https://deno.land/install.sh", ""), specCfg)

	assert.Equal(t, OutcomeAlreadyPresent, r.Outcome)
	assert.Empty(t, f.Lines())
}

func TestPipeScript(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake()

	r := newCustom(t, f).Install(context.Background(), customTool("deno", manifest.StrategyPipeScript, "https://deno.land/install.sh", ""), specCfg)

	assert.Equal(t, OutcomeInstalled, r.Outcome)
	assert.Equal(t, []string{"bash -c set -o pipefail; curl -fsSL 'https://deno.land/install.sh' | bash"}, f.Lines())
}

// downloadWrites makes "curl ... -o <path> <url>" create the file at path.
func downloadWrites(t *testing.T, f *runner.Fake, dest, url string, content []byte) {
	t.Helper()
	f.OnFunc("curl -fsSL -o "+dest+" "+url, func(runner.Call) ([]byte, error) {
		return nil, os.WriteFile(dest, content, 0644)
	})
}

func TestDownloadScriptLeavesNoScriptBehind(t *testing.T) {
	const url = "https://raw.githubusercontent.com/helm/helm/main/scripts/get-helm-3"
	tool := customTool("helm", manifest.StrategyDownloadScript, url, "")

	for name, scriptErr := range map[string]error{"script succeeds": nil, "script fails": runner.ErrExit} {
		t.Run(name, func(t *testing.T) {
			captureOutput(t)
			dir := t.TempDir()
			script := filepath.Join(dir, "get-helm-3")
			f := runner.NewFake()
			downloadWrites(t, f, script, url, []byte("#!/bin/sh\nexit 0\n"))
			f.OnFunc(script, func(runner.Call) ([]byte, error) {
				info, err := os.Stat(script)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
				return nil, scriptErr
			})

			r := NewCustom(f, NewBrew(f), WithWorkDir(dir)).Install(context.Background(), tool, specCfg)

			if scriptErr == nil {
				assert.Equal(t, OutcomeInstalled, r.Outcome)
			} else {
				assert.Equal(t, OutcomeInstallFailed, r.Outcome)
			}
			assert.True(t, f.Ran(script))
			assert.NoFileExists(t, script)
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestDownloadScriptPartialDownloadRemoved(t *testing.T) {
	const url = "https://example.com/install.sh"
	captureOutput(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "install.sh")
	f := runner.NewFake()
	f.OnFunc("curl -fsSL -o "+script+" "+url, func(runner.Call) ([]byte, error) {
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0644))
		return []byte("curl: (18) transfer closed"), runner.ErrExit
	})

	r := NewCustom(f, NewBrew(f), WithWorkDir(dir)).Install(context.Background(), customTool("tool", manifest.StrategyDownloadScript, url, ""), specCfg)

	assert.Equal(t, OutcomeInstallFailed, r.Outcome)
	assert.False(t, f.Ran(script))
	assert.NoFileExists(t, script)
}

func TestContainerPairStartsDaemon(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake()
	f.On("colima status", "colima is not running", runner.ErrExit)

	r := newCustom(t, f).Install(context.Background(), customTool("docker", manifest.StrategyContainerPair, "", "colima"), specCfg)

	assert.Equal(t, OutcomeInstalled, r.Outcome)
	assert.Equal(t, []string{
		"brew install docker",
		"brew install colima",
		"colima status",
		"colima start",
	}, f.Lines())
}

func TestContainerPairStartFailureFailsTool(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake().AddPath("docker", "colima")
	f.On("colima status", "", runner.ErrExit)
	f.On("colima start", "FATA[0001] error starting vm", runner.ErrExit)

	r := newCustom(t, f).Install(context.Background(), customTool("docker", manifest.StrategyContainerPair, "", "colima"), specCfg)

	assert.Equal(t, OutcomeInstallFailed, r.Outcome)
	assert.ErrorIs(t, r.Err, runner.ErrExit)
}

func TestContainerPairRunningIsPresent(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake().AddPath("docker", "colima")

	r := newCustom(t, f).Install(context.Background(), customTool("docker", manifest.StrategyContainerPair, "", "colima"), specCfg)

	assert.Equal(t, OutcomeAlreadyPresent, r.Outcome)
	assert.Equal(t, []string{"colima status"}, f.Lines())
}

func TestContainerPairRespecUninstallsBoth(t *testing.T) {
	captureOutput(t)
	f := runner.NewFake()

	r := newCustom(t, f).Install(context.Background(), customTool("docker", manifest.StrategyContainerPair, "", "colima"), respecCfg)

	assert.Equal(t, OutcomeInstalled, r.Outcome)
	lines := f.Lines()
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, []string{"brew uninstall colima", "brew uninstall docker", "brew install docker", "brew install colima"}, lines[:4])
}

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0755, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, out.Close())
}

func TestArchiveInstallsBinary(t *testing.T) {
	captureOutput(t)
	src := filepath.Join(t.TempDir(), "k9s.tar.gz")
	writeTarGz(t, src, map[string]string{"LICENSE": "Apache", "k9s": "#!/bin/sh\necho k9s\n"})
	archive, err := os.ReadFile(src)
	require.NoError(t, err)

	binDir := t.TempDir()
	var downloaded string
	ar := &archiveRunner{
		Fake: runner.NewFake(),
		url:  "https://github.com/derailed/k9s/releases/latest/download/k9s_Darwin_arm64.tar.gz",
		body: archive,
		dest: &downloaded,
	}
	c := NewCustom(ar, NewBrew(ar), WithBinDir(binDir), WithPlatform("darwin", "arm64"))
	tool := customTool("k9s", manifest.StrategyArchive, "https://github.com/derailed/k9s/releases/latest/download/k9s_{OS}_{arch}.tar.gz", "")

	r := c.Install(context.Background(), tool, specCfg)

	require.Equal(t, OutcomeInstalled, r.Outcome, "%v", r.Err)
	info, err := os.Stat(filepath.Join(binDir, "k9s"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0111)
	assert.NoFileExists(t, downloaded)
}

// archiveRunner serves curl downloads of one URL from memory.
type archiveRunner struct {
	*runner.Fake
	url  string
	body []byte
	dest *string
}

func (a *archiveRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "curl" && len(args) == 4 && args[3] == a.url {
		*a.dest = args[2]
		if err := os.WriteFile(args[2], a.body, 0644); err != nil {
			return nil, err
		}
	}
	return a.Fake.Run(ctx, name, args...)
}

func TestCustomDryRun(t *testing.T) {
	tests := []struct {
		tool manifest.ToolSpec
		want string
	}{
		{customTool("aws-sso-util", manifest.StrategyPipx, "", ""), "Would install: pipx install aws-sso-util"},
		{customTool("deno", manifest.StrategyPipeScript, "https://deno.land/install.sh", ""), "Would install: curl -fsSL 'https://deno.land/install.sh' | bash"},
		{customTool("helm", manifest.StrategyDownloadScript, "https://example.com/get-helm-3", ""), "Would install: curl -fsSL -o get-helm-3"},
		{customTool("docker", manifest.StrategyContainerPair, "", "colima"), "Would install: brew install docker colima && colima start"},
		{customTool("k9s", manifest.StrategyArchive, "https://example.com/k9s_{OS}_{arch}.tar.gz", ""), "Would install: curl -fsSL https://example.com/k9s_Linux_amd64.tar.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.tool.Command, func(t *testing.T) {
			out, _ := captureOutput(t)
			f := runner.NewFake()

			r := newCustom(t, f, WithPlatform("linux", "amd64")).Install(context.Background(), tt.tool, config.RunConfig{Mode: config.ModeSpec, DryRun: true})

			assert.Equal(t, OutcomeDryRun, r.Outcome)
			assert.Contains(t, out.String(), tt.want)
			assert.Empty(t, f.Lines())
		})
	}
}

func TestCustomDryRunRespec(t *testing.T) {
	out, _ := captureOutput(t)
	f := runner.NewFake().AddPath("aws-sso-util")

	r := newCustom(t, f).Install(context.Background(), customTool("aws-sso-util", manifest.StrategyPipx, "", ""), config.RunConfig{Mode: config.ModeRespec, DryRun: true})

	assert.Equal(t, OutcomeDryRun, r.Outcome)
	assert.Contains(t, out.String(), "Would uninstall: pipx uninstall aws-sso-util")
	assert.Contains(t, out.String(), "Would install: pipx install aws-sso-util")
	assert.Empty(t, f.Lines())
}

func TestCustomUnknownStrategy(t *testing.T) {
	_, errOut := captureOutput(t)
	f := runner.NewFake()

	r := newCustom(t, f).Install(context.Background(), customTool("x", "magic", "", ""), specCfg)

	assert.Equal(t, OutcomeInstallFailed, r.Outcome)
	assert.Contains(t, errOut.String(), "unknown strategy")
}
