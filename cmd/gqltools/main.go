package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gqltools "github.com/hanpama/gqltools"
	config "github.com/hanpama/gqltools/internal/config"
	language "github.com/hanpama/gqltools/internal/language"
	logging "github.com/hanpama/gqltools/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	logger := logging.NewLogger()
	config.LoadEnv(logger)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root := newRootCmd(cfg, logger)
	root.SetArgs(args)
	root.SetOut(stdout)
	return root.Execute()
}

// newRootCmd wires the subcommands. Flag defaults come from cfg, so flags
// override the environment.
func newRootCmd(cfg *config.Config, logger *logrus.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "gqltools",
		Short:         "GraphQL schema tools",
		Long:          "gqltools merges, validates and serves GraphQL schema-language documents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd(cfg, logger))
	root.AddCommand(newCheckCmd(cfg, logger))
	root.AddCommand(newServeCmd(cfg, logger))
	return root
}

func newCompileCmd(cfg *config.Config, logger *logrus.Logger) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Merge and validate schema files and print the resulting SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchema(cfg.Schemas, logger)
			if err != nil {
				return err
			}
			sdl := s.Render()
			if out == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	addSchemaFlag(cmd, cfg)
	cmd.Flags().StringVar(&out, "out", "", "write compiled SDL to file (default: stdout)")
	return cmd
}

func newCheckCmd(cfg *config.Config, logger *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate schema files; exits non-zero on errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := buildSchema(cfg.Schemas, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d types\n", countTypes(s))
			return nil
		},
	}
	addSchemaFlag(cmd, cfg)
	return cmd
}

func addSchemaFlag(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringArrayVarP(&cfg.Schemas, "schema", "s", cfg.Schemas,
		"schema file or directory of .graphql files. Repeatable")
}

// buildSchema validates the schema without resolvers.
func buildSchema(paths []string, logger logrus.FieldLogger) (*gqltools.ExecutableSchema, error) {
	sources, err := loadSources(paths)
	if err != nil {
		return nil, err
	}
	return gqltools.MakeExecutableSchema(gqltools.Config{
		Sources: sources,
		ResolverValidationOptions: gqltools.ResolverValidationOptions{
			RequireResolversForResolveType: gqltools.RequirementIgnore,
		},
		Logger: logger,
	})
}

var schemaExts = map[string]bool{".graphql": true, ".graphqls": true, ".gql": true}

// loadSources reads schema files. Directories are walked for files with a
// schema extension, in lexical order.
func loadSources(paths []string) ([]*language.Source, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one --schema is required")
	}
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && schemaExts[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}

	sources := make([]*language.Source, 0, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		sources = append(sources, &language.Source{Name: f, Input: string(b)})
	}
	return sources, nil
}

func countTypes(s *gqltools.ExecutableSchema) int {
	n := 0
	for _, t := range s.Schema().Types {
		if !t.BuiltIn && !t.IsIntrospection() {
			n++
		}
	}
	return n
}
