package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dataflowguard/internal/ai"
	"dataflowguard/internal/compiler"
	"dataflowguard/internal/config"
	"dataflowguard/internal/ir"
	"dataflowguard/internal/model"
)

var (
	compileDataset  string
	compileKind     string
	compileJSONPath string
	compileJSONType string
	compileJSONCol  string
	compileUseAI    bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [expression]",
	Short: "compile a test definition to SQL without executing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if compileUseAI {
			return compileViaAI(cmd, args[0])
		}

		t := model.TestDefinition{
			Name:       "cli-preview",
			Kind:       model.TestKind(compileKind),
			Dataset:    compileDataset,
			Expression: args[0],
			Severity:   model.SeverityMajor,
			Gate:       model.GateWarn,
			JSONPath:   compileJSONPath,
			JSONType:   compileJSONType,
			JSONColumn: compileJSONCol,
		}
		compiled, err := compiler.Compile(t)
		if err != nil {
			return fmt.Errorf("compile: %w", err)
		}
		fmt.Println(compiled.SQL)
		for _, w := range compiled.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		return nil
	},
}

// compileViaAI exercises the natural-language compilation path: the
// configured ai.Provider turns the free-text expression into IR bytes,
// ir.ParsePlan decodes and validates them, and compiler.CompilePlan lowers
// the resulting Plan the same way the template path lowers a
// TestDefinition.
func compileViaAI(cmd *cobra.Command, expression string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	provider := buildProvider(cmd.Context(), cfg)

	result, err := provider.CompileExpression(cmd.Context(), ai.CompileExpressionRequest{
		Expression: expression,
		Dataset:    compileDataset,
		TestType:   compileKind,
	})
	if err != nil {
		return fmt.Errorf("compile expression: %w", err)
	}

	plan, err := ir.ParsePlan(result.IR)
	if err != nil {
		return fmt.Errorf("parse ir: %w", err)
	}

	compiled, err := compiler.CompilePlan(*plan)
	if err != nil {
		return fmt.Errorf("compile plan: %w", err)
	}

	fmt.Println(compiled.SQL)
	fmt.Printf("confidence=%.2f model=%s\n", result.Confidence, provider.Model())
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, w := range compiled.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func init() {
	compileCmd.Flags().StringVar(&compileDataset, "dataset", "", "fully qualified dataset")
	compileCmd.Flags().StringVar(&compileKind, "type", string(model.KindRule), "test kind")
	compileCmd.Flags().StringVar(&compileJSONPath, "path", "", "JSON path for json_* kinds (e.g. $.a.b)")
	compileCmd.Flags().StringVar(&compileJSONType, "json-type", "", "expected scalar type for json_type_check")
	compileCmd.Flags().StringVar(&compileJSONCol, "column", "", "tabular column for json_mapping_equivalence")
	compileCmd.Flags().BoolVar(&compileUseAI, "ai", false, "compile the expression via the configured AI provider into IR, then to SQL")
	compileCmd.MarkFlagRequired("dataset")
}
