package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"seqbatch/internal/config"
	"seqbatch/internal/dataset"
)

var inspectCount int

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Collate the first examples of the store and print the batch as JSON",
	Args:  cobra.NoArgs,
	RunE:  inspectBatch,
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectCount, "count", "n", 4, "Number of examples to collate")
}

// inspectView is the JSON form of a collated batch.
type inspectView struct {
	Shape   []int         `json:"shape"`
	Padded  [][][]float32 `json:"padded"`
	Labels  []int         `json:"labels"`
	Lengths []int         `json:"lengths"`
	Mask    [][]bool      `json:"mask"`
}

func inspectBatch(cmd *cobra.Command, args []string) error {
	cfg, err := setup(config.Overrides{})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	if inspectCount <= 0 || inspectCount > store.Len() {
		return fmt.Errorf("count must be in [1, %d] (got %d)", store.Len(), inspectCount)
	}

	indices := make([]int, inspectCount)
	for i := range indices {
		indices[i] = i
	}
	examples, err := store.Examples(indices)
	if err != nil {
		return err
	}
	batch, err := dataset.CollateWith(dataset.Collator[float32]{PadValue: cfg.PadValue}, examples)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(viewOf(batch))
}

func viewOf(batch *dataset.Batch[float32, int]) inspectView {
	shape := batch.Padded.Shape()
	padded := make([][][]float32, shape[0])
	for i := range padded {
		padded[i] = make([][]float32, shape[1])
		for step := range padded[i] {
			row := make([]float32, shape[2])
			for f := range row {
				row[f] = batch.Padded.At(i, step, f)
			}
			padded[i][step] = row
		}
	}
	return inspectView{
		Shape:   shape,
		Padded:  padded,
		Labels:  batch.Labels,
		Lengths: batch.Lengths,
		Mask:    batch.Mask(),
	}
}
