package main

import (
	stderrors "errors"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/jwalitptl/leukemia-dashboard/internal/listing"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/service/patient"
)

func patientsCommand() *cli.Command {
	return &cli.Command{
		Name:  "patients",
		Usage: "manage patient records",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list patients",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "case-insensitive name filter"},
					&cli.StringSliceFlag{Name: "sort", Usage: "sort column; repeat a column to reverse it"},
					&cli.IntFlag{Name: "limit", Value: listing.DefaultLimit},
					&cli.BoolFlag{Name: "all", Usage: "show every row"},
				},
				Action: listPatients,
			},
			{
				Name:      "get",
				Usage:     "show one patient with reports and results",
				ArgsUsage: "ID",
				Action:    getPatient,
			},
			{
				Name:  "next-id",
				Usage: "propose the next free patient id",
				Action: func(c *cli.Context) error {
					id, err := envFrom(c).patients.NextID(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, id)
					return nil
				},
			},
			{
				Name:   "create",
				Usage:  "create a patient",
				Flags:  append(patientFlags(), &cli.IntFlag{Name: "id", Usage: "defaults to next-id"}),
				Action: createPatient,
			},
			{
				Name:      "update",
				Usage:     "replace a patient record; unset flags keep their current value",
				ArgsUsage: "ID",
				Flags:     append(patientFlags(), &cli.PathFlag{Name: "picture", Usage: "also upload this profile picture"}),
				Action:    updatePatient,
			},
			{
				Name:      "delete",
				Usage:     "delete a patient",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := intArg(c, 0, "patient id")
					if err != nil {
						return err
					}
					return envFrom(c).patients.Delete(c.Context, id)
				},
			},
			{
				Name:      "picture",
				Usage:     "upload a profile picture",
				ArgsUsage: "ID FILE",
				Action:    uploadPicture,
			},
		},
	}
}

func patientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "fullname"},
		&cli.StringFlag{Name: "phone"},
		&cli.StringFlag{Name: "email"},
		&cli.StringFlag{Name: "gender", Usage: "male or female"},
		&cli.IntFlag{Name: "age"},
		&cli.StringFlag{Name: "address"},
		&cli.StringFlag{Name: "blood-type"},
		&cli.StringFlag{Name: "conditions"},
		&cli.StringFlag{Name: "medications"},
		&cli.StringFlag{Name: "emergency-name"},
		&cli.StringFlag{Name: "emergency-phone"},
	}
}

// applyPatientFlags overwrites the fields whose flag was given.
func applyPatientFlags(c *cli.Context, p *model.Patient) {
	set := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	set("fullname", &p.FullName)
	set("phone", &p.Phone)
	set("email", &p.Email)
	set("address", &p.Address)
	set("conditions", &p.MedicalConditions)
	set("medications", &p.CurrentMedications)
	set("emergency-name", &p.EmergencyName)
	set("emergency-phone", &p.EmergencyPhone)
	if c.IsSet("gender") {
		p.Gender = model.Gender(c.String("gender"))
	}
	if c.IsSet("blood-type") {
		p.BloodType = model.BloodType(c.String("blood-type"))
	}
	if c.IsSet("age") {
		p.Age = c.Int("age")
	}
}

func listPatients(c *cli.Context) error {
	e := envFrom(c)
	view := listing.New(e.log)
	if err := view.Refresh(c.Context, e.patients); err != nil {
		return err
	}

	view.SetSearch(c.String("search"))
	for _, s := range c.StringSlice("sort") {
		f, err := listing.ParseField(s)
		if err != nil {
			return err
		}
		view.SortBy(f)
	}
	if c.Bool("all") {
		view.ShowAll()
	} else {
		view.SetLimit(c.Int("limit"))
	}

	rows := view.View()
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHONE\tGENDER\tAGE\tEMAIL")
	for _, p := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", p.ID, p.FullName, p.Phone, p.Gender, p.Age, p.Email)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "showing %d of %d\n", len(rows), view.Len())
	return nil
}

func getPatient(c *cli.Context) error {
	e := envFrom(c)
	id, err := intArg(c, 0, "patient id")
	if err != nil {
		return err
	}
	p, err := e.patients.Get(c.Context, id)
	if err != nil {
		return err
	}
	if p.ProfilePicture != nil {
		pic := e.api.ResolveURL(*p.ProfilePicture)
		p.ProfilePicture = &pic
	}
	return printJSON(c, p)
}

func createPatient(c *cli.Context) error {
	var p model.Patient
	p.ID = c.Int("id")
	applyPatientFlags(c, &p)

	created, err := envFrom(c).patients.Create(c.Context, p)
	if err != nil {
		return err
	}
	return printJSON(c, created)
}

func updatePatient(c *cli.Context) error {
	e := envFrom(c)
	id, err := intArg(c, 0, "patient id")
	if err != nil {
		return err
	}
	current, err := e.patients.Get(c.Context, id)
	if err != nil {
		return err
	}
	applyPatientFlags(c, current)

	var img *model.Image
	if path := c.Path("picture"); path != "" {
		read, err := model.ReadImage(path)
		if err != nil {
			return err
		}
		img = &read
	}

	updated, err := e.patients.UpdateWithPicture(c.Context, id, *current, img)
	var partial *patient.PartialUpdateError
	if stderrors.As(err, &partial) {
		_ = printJSON(c, updated)
	}
	if err != nil {
		return err
	}
	return printJSON(c, updated)
}

func uploadPicture(c *cli.Context) error {
	e := envFrom(c)
	id, err := intArg(c, 0, "patient id")
	if err != nil {
		return err
	}
	if c.Args().Get(1) == "" {
		return fmt.Errorf("missing picture file argument")
	}
	img, err := model.ReadImage(c.Args().Get(1))
	if err != nil {
		return err
	}
	url, err := e.patients.UploadProfilePicture(c.Context, id, img)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, e.api.ResolveURL(url))
	return nil
}
