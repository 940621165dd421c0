package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitalscore/vitalscore/pkg/risk"
	"github.com/vitalscore/vitalscore/pkg/types"
)

// scoreOutput is what the score command prints.
type scoreOutput struct {
	Assessment types.AssessmentRequest `json:"assessment"`
	Scores     []risk.Scored           `json:"scores"`
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <file.json>",
		Short: "Score a saved page response or patient array offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(false)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			patients, err := decodePatients(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			a, scores := risk.AssessDetailed(patients)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scoreOutput{Assessment: a.Request(), Scores: scores})
		},
	}
}

// decodePatients accepts either a /patients page response or a bare array
// of patient records.
func decodePatients(data []byte) ([]types.Patient, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}

	if data[0] == '[' {
		var patients []types.Patient
		if err := json.Unmarshal(data, &patients); err != nil {
			return nil, fmt.Errorf("decode patient array: %w", err)
		}
		return patients, nil
	}

	var page types.PageResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode page response: %w", err)
	}
	return page.Data, nil
}
