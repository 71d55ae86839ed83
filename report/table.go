package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/montanaflynn/stats"

	"github.com/isae-vo/trajeval/evaluation"
)

// Table renders one row per result with a footer averaging every column over the sequences.
func Table(results []*evaluation.Result) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Sequence", "Alignment", "Poses", "ATE (m)", "RPE (m)", "RPE (deg)", "Scale ratio", "Length (m)"})

	var ate, rpeTrans, rpeRot, ratio stats.Float64Data
	for _, res := range results {
		t.AppendRow(table.Row{
			res.Sequence,
			res.Alignment,
			res.Prediction.Len(),
			formatMetric(res.ATE),
			formatMetric(res.RPETranslation),
			formatMetric(res.RPERotationDegrees()),
			formatMetric(res.ScaleRatioSummary.Mean),
			fmt.Sprintf("%.1f", res.PathLength),
		})
		ate = append(ate, res.ATE)
		rpeTrans = append(rpeTrans, res.RPETranslation)
		rpeRot = append(rpeRot, res.RPERotationDegrees())
		ratio = append(ratio, res.ScaleRatioSummary.Mean)
	}
	if len(results) > 1 {
		t.AppendFooter(table.Row{
			"mean", "", "",
			formatMetric(mean(ate)),
			formatMetric(mean(rpeTrans)),
			formatMetric(mean(rpeRot)),
			formatMetric(mean(ratio)),
			"",
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return t.Render()
}

// WriteTable writes Table(results) to w followed by a newline.
func WriteTable(w io.Writer, results []*evaluation.Result) error {
	_, err := fmt.Fprintln(w, Table(results))
	return err
}

func formatMetric(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func mean(data stats.Float64Data) float64 {
	m, err := data.Mean()
	if err != nil {
		return 0
	}
	return m
}
