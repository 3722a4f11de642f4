package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"decomp/internal/cfgtext"
	"decomp/internal/export"
	"decomp/internal/region"
	"decomp/internal/structuring"

	_ "github.com/tliron/commonlog/simple"
)

var (
	outputFormat string
	verbosity    int
)

var rootCmd = &cobra.Command{
	Use:   "decomp",
	Short: "Control-flow structuring for lifted region graphs",
	Long: "decomp reads textual region-graph descriptions and recovers structured\n" +
		"control flow: sequences, if/else, loops, switch-cases and break/continue.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commonlog.Configure(verbosity, nil)
	},
}

var structureCmd = &cobra.Command{
	Use:   "structure <file>",
	Short: "Structure every region in a region-graph file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := cfgtext.ParseFile(args[0])
		if err != nil {
			return err
		}
		regions, err := cfgtext.BuildRegions(file)
		if err != nil {
			return err
		}

		failed := 0
		for _, r := range regions {
			if err := structureRegion(r); err != nil {
				color.Red("region %#x: %s", r.Head.Addr(), err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d regions could not be structured", failed, len(regions))
		}
		return nil
	},
}

func structureRegion(r *region.Region) error {
	headAddr := r.Head.Addr()
	result, err := structuring.Structure(r)
	if err != nil {
		return err
	}

	switch outputFormat {
	case "text":
		color.Green("// region %#x", headAddr)
		fmt.Println(result.String())
	case "yaml":
		out, err := export.MarshalYAML(result)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
	case "msgpack":
		out, err := export.MarshalMsgpack(result)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "log verbosity (repeatable)")
	structureCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, yaml or msgpack")
	rootCmd.AddCommand(structureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
