package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/palette/internal/generation"
	"github.com/JaimeStill/palette/internal/pipeline"
	"github.com/JaimeStill/palette/recipe"
)

var errInvalid = errors.New("recipe values are incomplete")

type options struct {
	registry string
	sets     []string
	model    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "palette",
		Short:         "Inspect image generation recipes offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.registry, "registry", "", "YAML file of extra tools and analyses")

	root.AddCommand(
		newParseCmd(),
		newFieldsCmd(),
		newValidateCmd(opts),
		newPromptsCmd(opts),
		newCostCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

type parseOutput struct {
	Stages []recipe.StageSpec `yaml:"stages"`
	Fields []recipe.Field     `yaml:"fields"`
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <template>",
		Short:   "Split a template into stages and list its unique fields",
		Example: `  palette parse "A <<SUBJECT:text>> | <<SUBJECT>> at night"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := recipe.Prepare(recipe.ParseTemplate(args[0], recipe.IndexIDs()))
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), parseOutput{
				Stages: recipe.Specs(stages),
				Fields: recipe.UniqueFields(stages),
			})
		},
	}
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <recipe.yaml>",
		Short: "List the form fields a recipe asks for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRecipe(args[0])
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), recipe.FormFields(r.stages))
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <recipe.yaml>",
		Short: "Check that every required field has a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, reg, values, err := load(opts, args[0])
			if err != nil {
				return err
			}

			v := recipe.ValidateDeferred(r.stages, values, reg.DeferredFields(r.stages))
			if err := writeYAML(cmd.OutOrStdout(), v); err != nil {
				return err
			}
			if !v.IsValid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "field value as KEY=value (repeatable)")
	return cmd
}

func newPromptsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts <recipe.yaml>",
		Short: "Build each stage's prompt without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, values, err := load(opts, args[0])
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), pipeline.Preview(r.stages, values))
		},
	}
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "field value as KEY=value (repeatable)")
	return cmd
}

type costOutput struct {
	Model           string `yaml:"model"`
	ToolCost        int    `yaml:"toolCost"`
	GenerationCount int    `yaml:"generationCount"`
	Total           int    `yaml:"total"`
}

func newCostCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost <recipe.yaml>",
		Short: "Price a recipe run on a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, reg, _, err := load(opts, args[0])
			if err != nil {
				return err
			}

			rt := &pipeline.Runtime{
				Registry: reg,
				Pricer:   generation.NewCatalog(generation.DefaultModels()),
			}
			total, err := pipeline.Estimate(rt, r.stages, opts.model)
			if err != nil {
				return err
			}

			return writeYAML(cmd.OutOrStdout(), costOutput{
				Model:           opts.model,
				ToolCost:        recipe.ToolCost(r.stages, reg.Tools),
				GenerationCount: recipe.GenerationCount(r.stages),
				Total:           total,
			})
		},
	}
	cmd.Flags().StringVar(&opts.model, "model", "nano-banana-2", "model to price generation stages on")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <recipe.yaml>",
		Short: "Check registry references and multi-output chaining",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, reg, _, err := load(opts, args[0])
			if err != nil {
				return err
			}
			if err := reg.CheckReferences(r.stages); err != nil {
				return err
			}
			if err := recipe.CheckChaining(r.stages, reg.Tools, r.policy); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d stages ok\n", args[0], len(r.stages))
			return nil
		},
	}
}

func load(opts *options, path string) (*loaded, *recipe.Registry, recipe.Values, error) {
	r, err := loadRecipe(path)
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := loadRegistry(opts.registry)
	if err != nil {
		return nil, nil, nil, err
	}
	values, err := parseSets(r.file.Values, opts.sets)
	if err != nil {
		return nil, nil, nil, err
	}
	return r, reg, values, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
