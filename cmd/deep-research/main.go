// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the deep-research CLI. It turns a
// topic and a set of questions into a shortlist of academic papers and a
// stream of citation-backed quotes answering those questions.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/deep-research/internal/secrets"
	"github.com/pdiddy/deep-research/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "deep-research/0.1"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is the process-wide structured logger, configured in the root
// command's PersistentPreRunE.
var logger *zap.Logger = zap.NewNop()

// secretOr returns value if set, otherwise the secret stored under key.
func secretOr(value, key string) string {
	if value != "" {
		return value
	}
	return loadedSecrets[key]
}

// rootCmd is the base command for the deep-research CLI.
var rootCmd = &cobra.Command{
	Use:   "deep-research",
	Short: "Automated literature research with quote extraction",
	Long: `deep-research expands a research topic into structured search terms, gathers
candidate papers from arXiv, OpenAlex, and Semantic Scholar, filters them by
semantic relevance, then downloads the shortlist and extracts citation-backed
quotes answering your questions.

Run a full pipeline with "run", or probe search and filtering alone with
"search". Finished runs can be archived to SQLite and queried later with
"notes".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(cmd); err != nil {
			return err
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func setupLogger(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger = l
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./deep-research.yaml or ~/.config/deep-research/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("deep-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "deep-research"))
		}
	}

	viper.SetEnvPrefix("DEEP_RESEARCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the stage configuration from viper, with
// secrets filling any keys the config file leaves blank.
func pipelineConfig() types.PipelineConfig {
	viper.SetDefault("search.max_results_per_provider", 25)
	viper.SetDefault("search.enable_arxiv", true)
	viper.SetDefault("search.enable_openalex", true)
	viper.SetDefault("search.enable_semantic_scholar", true)
	viper.SetDefault("http.timeout", 60*time.Second)
	viper.SetDefault("ai.model", "gemini-2.5-flash")
	viper.SetDefault("ai.embed_model", "gemini-embedding-001")

	httpCfg := types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: defaultUserAgent,
	}

	return types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig:            httpCfg,
			MaxResultsPerProvider: viper.GetInt("search.max_results_per_provider"),
			ProviderConcurrency:   viper.GetInt("search.provider_concurrency"),
			EnableArxiv:           viper.GetBool("search.enable_arxiv"),
			EnableOpenAlex:        viper.GetBool("search.enable_openalex"),
			EnableSemanticScholar: viper.GetBool("search.enable_semantic_scholar"),
			SemanticScholarAPIKey: secretOr(viper.GetString("search.semantic_scholar_api_key"), "semantic-scholar-api-key"),
			OpenAlexEmail:         secretOr(viper.GetString("search.openalex_email"), "openalex-email"),
		},
		Filter: types.FilterConfig{
			EmbedKeep:     viper.GetInt("filter.embed_keep"),
			RerankBatch:   viper.GetInt("filter.rerank_batch"),
			RerankTimeout: viper.GetDuration("filter.rerank_timeout"),
			MaxShortlist:  viper.GetInt("filter.max_shortlist"),
		},
		Materialize: types.MaterializeConfig{
			HTTPConfig:       httpCfg,
			MaxDocumentBytes: viper.GetInt64("materialize.max_document_bytes"),
			ConvertURL:       viper.GetString("materialize.convert_url"),
		},
		Extract: types.ExtractConfig{
			PageBatch: viper.GetInt("extract.page_batch"),
			Timeout:   viper.GetDuration("extract.timeout"),
		},
		AI: types.AIConfig{
			Model:      viper.GetString("ai.model"),
			EmbedModel: viper.GetString("ai.embed_model"),
			APIKey:     secretOr(viper.GetString("ai.api_key"), "gemini-api-key"),
			MaxRetries: viper.GetInt("ai.max_retries"),
		},
		AnalysisConcurrency: viper.GetInt("analysis_concurrency"),
	}
}

func httpClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
