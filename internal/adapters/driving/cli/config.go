package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Create, inspect and edit ~/.ragbot/config.toml.

Values from a .env file and RAGBOT_-prefixed environment variables
override the file, e.g. RAGBOT_LLM_PROVIDER=openai.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Prints the configuration after defaults, file and environment are applied. Secrets are masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a value in the config file",
	Long: `Sets a dotted key in the config file, e.g.

  ragbot config set llm.provider openai
  ragbot config set rag.chunk_size 800`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a value from the config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and reach the AI providers",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func resolvedConfigPath() (string, error) {
	if p := configPath(); p != "" {
		return p, nil
	}
	return config.DefaultPath()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return &userError{msg: fmt.Sprintf("%s already exists. Use --force to overwrite it.", path)}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check config: %w", err)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	cmd.Println("Set your LLM key with: ragbot config set llm.api_key <key>")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(maskSecrets(*cfg))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	cmd.Printf("# %s\n", path)
	cmd.Print(string(data))

	if err := cfg.Validate(); err != nil {
		cmd.Printf("\n# Not ready: %v\n", err)
	}
	return nil
}

func maskSecrets(cfg config.Config) config.Config {
	for _, secret := range []*string{
		&cfg.LLM.APIKey,
		&cfg.Embedding.APIKey,
		&cfg.Vector.QdrantAPIKey,
		&cfg.Vector.PostgresDSN,
		&cfg.Rerank.APIKey,
		&cfg.Sessions.DSN,
		&cfg.Identity.APIKey,
	} {
		if *secret != "" {
			*secret = "********"
		}
	}
	return cfg
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := file.NewConfigStore(configPath())
	if err != nil {
		return err
	}
	if err := store.SetString(args[0], args[1]); err != nil {
		return err
	}

	if _, err := config.Load(store.Path()); err != nil {
		cmd.PrintErrf("Warning: the config file no longer loads: %v\n", err)
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, err := file.NewConfigStore(configPath())
	if err != nil {
		return err
	}
	if _, ok := store.Get(args[0]); !ok {
		return &userError{msg: fmt.Sprintf("%s is not set in %s.", args[0], store.Path())}
	}
	cmd.Println(store.GetString(args[0]))
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return &userError{msg: fmt.Sprintf("Not ready: %v", err)}
	}

	llm, emb := cfg.LLMSettings(), cfg.EmbeddingSettings()
	validator := ai.NewConfigValidator(app.HTTPOptions(cfg)...)
	if err := validator.ValidateAll(cmd.Context(), &emb, &llm); err != nil {
		return &userError{msg: fmt.Sprintf("Provider check failed: %v", err)}
	}
	cmd.Printf("LLM %s (%s) and embedding %s (%s) are reachable.\n",
		llm.Provider, llm.Model, emb.Provider, emb.Model)
	return nil
}
