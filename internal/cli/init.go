package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/shellgate/internal/allowlist"
	"github.com/ppiankov/shellgate/internal/config"
	"github.com/ppiankov/shellgate/internal/denylist"
)

var (
	initDir   string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", "", "Config directory (default: ~/.shellgate)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default configuration and policy files",
	Long: `Creates the config directory with config.yaml, allowlist.yaml and denylist.yaml
holding the built-in defaults. Existing files are kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}

	allowlistPath := filepath.Join(configDir, "allowlist.yaml")
	denylistPath := filepath.Join(configDir, "denylist.yaml")
	configFilePath := filepath.Join(configDir, "config.yaml")

	allowData, err := allowlist.DefaultYAML()
	if err != nil {
		return fmt.Errorf("generate default allowlist: %w", err)
	}
	denyData, err := denylist.DefaultYAML()
	if err != nil {
		return fmt.Errorf("generate default denylist: %w", err)
	}
	cfgData, err := defaultConfigYAML(allowlistPath, denylistPath)
	if err != nil {
		return fmt.Errorf("generate default config: %w", err)
	}

	files := []struct {
		path    string
		header  string
		content []byte
	}{
		{configFilePath, configHeader, cfgData},
		{allowlistPath, allowlistHeader, allowData},
		{denylistPath, denylistHeader, denyData},
	}

	var created []string
	for _, f := range files {
		wrote, err := writeIfMissing(f.path, f.header+string(f.content))
		if err != nil {
			return err
		}
		if wrote {
			created = append(created, f.path)
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "shellgate init complete.")
	fmt.Fprintln(w)
	if len(created) > 0 {
		fmt.Fprintln(w, "Created:")
		for _, path := range created {
			fmt.Fprintf(w, "  %s\n", path)
		}
	} else {
		fmt.Fprintln(w, "All files already exist (use --force to overwrite).")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check a command:")
	fmt.Fprintln(w, "  shellgate check -- ls -la")
	fmt.Fprintln(w, "Serve agents over MCP:")
	fmt.Fprintln(w, "  shellgate serve --root <dir>")
	return nil
}

const (
	configHeader = "# shellgate configuration.\n" +
		"# Flags and SHELLGATE_* environment variables override these values.\n\n"
	allowlistHeader = "# shellgate allow-list. Only commands listed here can run.\n" +
		"# allowed_args are exact literals; requires_file permits path arguments.\n\n"
	denylistHeader = "# shellgate deny-list. Rules are regular expressions matched against\n" +
		"# the full command line, in order; the first match rejects the command.\n\n"
)

func defaultConfigYAML(allowlistPath, denylistPath string) ([]byte, error) {
	cfg := config.Default()
	cfg.Allowlist = allowlistPath
	cfg.Denylist = denylistPath
	return yaml.Marshal(cfg)
}

func initConfigDir() (string, error) {
	if initDir != "" {
		return initDir, nil
	}
	dir := config.Dir()
	if dir == "" {
		return "", fmt.Errorf("cannot determine home directory; use --dir")
	}
	return dir, nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
