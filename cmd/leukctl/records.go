package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

func reportsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "manage clinical reports",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "attach a report to a patient",
				ArgsUsage: "PATIENT_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
					&cli.StringFlag{Name: "medication"},
					&cli.BoolFlag{Name: "reload", Usage: "print the refreshed patient instead of the report"},
				},
				Action: func(c *cli.Context) error {
					e := envFrom(c)
					id, err := intArg(c, 0, "patient id")
					if err != nil {
						return err
					}
					report := model.Report{
						Title:      c.String("title"),
						Content:    c.String("content"),
						Medication: c.String("medication"),
					}
					if c.Bool("reload") {
						p, err := e.patients.AddReportAndReload(c.Context, id, report)
						if err != nil {
							return err
						}
						return printJSON(c, p)
					}
					created, err := e.patients.AddReport(c.Context, id, report)
					if err != nil {
						return err
					}
					return printJSON(c, created)
				},
			},
		},
	}
}

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "manage classification results",
		Subcommands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "delete one classification result",
				ArgsUsage: "RESULT_ID",
				Action: func(c *cli.Context) error {
					id, err := intArg(c, 0, "result id")
					if err != nil {
						return err
					}
					return envFrom(c).patients.DeleteClassificationResult(c.Context, id)
				},
			},
		},
	}
}

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "classify blood smear images for a patient, one at a time",
		ArgsUsage: "PATIENT_ID FILE...",
		Action: func(c *cli.Context) error {
			e := envFrom(c)
			id, err := intArg(c, 0, "patient id")
			if err != nil {
				return err
			}
			paths := c.Args().Slice()[1:]
			if len(paths) == 0 {
				return fmt.Errorf("no image files given")
			}
			images, err := model.ReadImages(paths)
			if err != nil {
				return err
			}

			detections, submitErr := e.detection.Submit(c.Context, id, images)

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tLABEL\tCONFIDENCE\tANNOTATED")
			for _, d := range detections {
				fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\n", d.Source, d.Label, d.Confidence, e.api.ResolveURL(d.AnnotatedImage))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return submitErr
		},
	}
}
