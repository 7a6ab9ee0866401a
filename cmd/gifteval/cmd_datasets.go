package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gifteval/gifteval/dataset"
)

// datasetsCmd groups dataset storage commands.
var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Inspect and manage dataset storage",
}

// Datasets flags.
var (
	datasetsSplit    string
	datasetsInfoName string
	datasetsInfoTerm string
	convertCSVPath   string
	convertOutDir    string
	convertFreqStr   string
	convertShardSize int
)

// datasetsListCmd lists dataset names found on disk.
var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dataset names on disk",
	RunE:  runDatasetsList,
}

// datasetsInfoCmd prints the loaded shape of one dataset.
var datasetsInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show frequency, horizon, windows, and sizes of a dataset",
	RunE:  runDatasetsInfo,
}

// datasetsValidateCmd loads every dataset of a split and reports failures.
var datasetsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load every dataset on disk and report failures",
	RunE:  runDatasetsValidate,
}

// datasetsConvertCmd converts a long-format CSV into the storage layout.
var datasetsConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a long-format CSV (item_id,timestamp,value) into a dataset",
	RunE:  runDatasetsConvert,
}

func init() {
	datasetsListCmd.Flags().StringVar(&datasetsSplit, "split", "", "Restrict to one split (train_test or pretrain)")
	datasetsValidateCmd.Flags().StringVar(&datasetsSplit, "split", "", "Restrict to one split (train_test or pretrain)")

	datasetsInfoCmd.Flags().StringVar(&datasetsInfoName, "dataset", "", "Dataset name (required)")
	datasetsInfoCmd.Flags().StringVar(&datasetsInfoTerm, "term", "short", "Forecast term (short, medium, long)")
	_ = datasetsInfoCmd.MarkFlagRequired("dataset")

	datasetsConvertCmd.Flags().StringVar(&convertCSVPath, "csv", "", "Input CSV file (required)")
	datasetsConvertCmd.Flags().StringVar(&convertOutDir, "out", "", "Target dataset directory (required)")
	datasetsConvertCmd.Flags().StringVar(&convertFreqStr, "freq", "", "Frequency string stamped on every record (required)")
	datasetsConvertCmd.Flags().IntVar(&convertShardSize, "shard-size", dataset.DefaultShardSize, "Series per shard")
	_ = datasetsConvertCmd.MarkFlagRequired("csv")
	_ = datasetsConvertCmd.MarkFlagRequired("out")
	_ = datasetsConvertCmd.MarkFlagRequired("freq")

	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsInfoCmd)
	datasetsCmd.AddCommand(datasetsValidateCmd)
	datasetsCmd.AddCommand(datasetsConvertCmd)
}

// splits returns the storage splits selected by the --split flag.
func splits() ([]string, error) {
	switch datasetsSplit {
	case "":
		return []string{dataset.SplitTrainTest, dataset.SplitPretrain}, nil
	case dataset.SplitTrainTest, dataset.SplitPretrain:
		return []string{datasetsSplit}, nil
	default:
		return nil, fmt.Errorf("unknown split %q (want %s or %s)",
			datasetsSplit, dataset.SplitTrainTest, dataset.SplitPretrain)
	}
}

func runDatasetsList(cmd *cobra.Command, args []string) error {
	root, err := storageRoot()
	if err != nil {
		return err
	}
	sel, err := splits()
	if err != nil {
		return err
	}

	for _, split := range sel {
		names, err := dataset.ListNames(root, split)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d):\n", split, len(names))
		for _, name := range names {
			dir := filepath.Join(root, split, filepath.FromSlash(name))
			meta, merr := dataset.ReadMeta(dir)
			if merr != nil {
				// Older dataset directories may lack the sidecar.
				fmt.Printf("  %s\n", name)
				continue
			}
			fmt.Printf("  %-32s %s series, freq %s\n", name,
				humanize.Comma(int64(meta.NumSeries)), meta.Freq)
		}
	}
	return nil
}

func runDatasetsInfo(cmd *cobra.Command, args []string) error {
	term, err := dataset.ParseTerm(datasetsInfoTerm)
	if err != nil {
		return err
	}
	root, err := storageRoot()
	if err != nil {
		return err
	}

	ds, err := dataset.Open(datasetsInfoName, dataset.WithTerm(term), dataset.WithStorageDir(root))
	if err != nil {
		return err
	}

	domain, numVariates := rowMetadata(root, "", datasetsInfoName, ds.TargetDim())

	fmt.Printf("%-22s %s\n", "name", ds.Name())
	fmt.Printf("%-22s %s\n", "config", ds.Config())
	fmt.Printf("%-22s %s\n", "term", ds.Term())
	fmt.Printf("%-22s %s\n", "split", ds.Split())
	fmt.Printf("%-22s %s\n", "freq", ds.Freq())
	fmt.Printf("%-22s %d\n", "seasonality", ds.Seasonality())
	if domain != "" {
		fmt.Printf("%-22s %s\n", "domain", domain)
	}
	fmt.Printf("%-22s %d\n", "variates", numVariates)
	fmt.Printf("%-22s %s\n", "series", humanize.Comma(int64(ds.NumSeries())))
	fmt.Printf("%-22s %s\n", "min series length", humanize.Comma(int64(ds.MinSeriesLength())))
	fmt.Printf("%-22s %s\n", "sum series length", humanize.Comma(int64(ds.SumSeriesLength())))
	fmt.Printf("%-22s %d\n", "prediction length", ds.PredictionLength())
	fmt.Printf("%-22s %d\n", "windows", ds.Windows())
	fmt.Printf("%-22s %s\n", "test instances", humanize.Comma(int64(len(ds.TestInstances()))))
	return nil
}

func runDatasetsValidate(cmd *cobra.Command, args []string) error {
	root, err := storageRoot()
	if err != nil {
		return err
	}
	sel, err := splits()
	if err != nil {
		return err
	}

	total, problems := 0, 0
	onDisk := make(map[string]bool)
	for _, split := range sel {
		names, err := dataset.ListNames(root, split)
		if err != nil {
			return err
		}
		for _, name := range names {
			total++
			if split == dataset.SplitTrainTest {
				onDisk[dataset.NormalizeKey(name)] = true
			}
			ds, err := dataset.Open(name, dataset.WithStorageDir(root))
			if err != nil {
				problems++
				fmt.Printf("FAIL  %s/%s: %v\n", split, name, err)
				continue
			}
			fmt.Printf("ok    %s/%s (%s series)\n", split, name, humanize.Comma(int64(ds.NumSeries())))
		}
	}

	if slices.Contains(sel, dataset.SplitTrainTest) {
		problems += validateProperties(root, onDisk)
	}

	fmt.Printf("validated %d datasets, %d problems\n", total, problems)
	if problems > 0 {
		return fmt.Errorf("validation found %d problems", problems)
	}
	return nil
}

// validateProperties cross-checks the properties file against the train_test
// datasets found on disk. A missing file is not a problem; pretrain-only
// storage carries no properties.
func validateProperties(root string, onDisk map[string]bool) int {
	props, err := dataset.LoadProperties(filepath.Join(root, dataset.PropertiesFileName))
	if err != nil {
		return 0
	}

	known := make(map[dataset.Domain]bool, len(dataset.Domains))
	for _, d := range dataset.Domains {
		known[d] = true
	}

	problems := 0
	for _, key := range props.Keys() {
		p := props[key]
		if !known[p.Domain] {
			problems++
			fmt.Printf("FAIL  properties %s: unknown domain %q\n", key, p.Domain)
		}
		if !onDisk[key] {
			problems++
			fmt.Printf("FAIL  properties %s: no %s dataset on disk\n", key, dataset.SplitTrainTest)
		}
	}
	return problems
}

func runDatasetsConvert(cmd *cobra.Command, args []string) error {
	f, err := os.Open(convertCSVPath)
	if err != nil {
		return err
	}
	defer f.Close()

	series, err := dataset.FromCSV(f)
	if err != nil {
		return err
	}
	if err := dataset.Write(convertOutDir, series, convertFreqStr, convertShardSize); err != nil {
		return err
	}

	fmt.Printf("wrote %s series to %s\n", humanize.Comma(int64(len(series))), convertOutDir)
	return nil
}
