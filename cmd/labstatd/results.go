package main

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/danilshahmanov/Infotecs/internal/storage/query"
)

var resultsFlags = map[string]*string{
	query.ParamFileName:            new(string),
	query.ParamMinAverageIndicator: new(string),
	query.ParamMaxAverageIndicator: new(string),
	query.ParamMinAverageDuration:  new(string),
	query.ParamMaxAverageDuration:  new(string),
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print the summaries matching a filter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			values := url.Values{}
			for param, v := range resultsFlags {
				if *v != "" {
					values.Set(param, *v)
				}
			}

			filter, err := query.ParseFilter(values)
			if err != nil {
				return err
			}
			summaries, err := a.query.Results(ctx, filter)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(output(cmd))
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		})
	},
}

func init() {
	flags := resultsCmd.Flags()
	flags.StringVar(resultsFlags[query.ParamFileName], query.ParamFileName, "", "file id")
	flags.StringVar(resultsFlags[query.ParamMinAverageIndicator], query.ParamMinAverageIndicator, "", "lower bound of the average indicator value")
	flags.StringVar(resultsFlags[query.ParamMaxAverageIndicator], query.ParamMaxAverageIndicator, "", "upper bound of the average indicator value")
	flags.StringVar(resultsFlags[query.ParamMinAverageDuration], query.ParamMinAverageDuration, "", "lower bound of the average duration")
	flags.StringVar(resultsFlags[query.ParamMaxAverageDuration], query.ParamMaxAverageDuration, "", "upper bound of the average duration")
}
