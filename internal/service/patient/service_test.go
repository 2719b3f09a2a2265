package patient

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/leukemia-dashboard/internal/client"
	"github.com/jwalitptl/leukemia-dashboard/internal/devserver/devservertest"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/session"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

func newPatient(name string) model.Patient {
	return model.Patient{
		FullName:           name,
		Phone:              "5550100",
		Email:              "patient@example.org",
		Gender:             "Female",
		Age:                42,
		Address:            "12 Marrow Lane",
		BloodType:          "o+",
		MedicalConditions:  "anaemia",
		CurrentMedications: "",
		EmergencyName:      "Kin",
		EmergencyPhone:     "5550199",
	}
}

func signedIn(t *testing.T) (*Service, *devservertest.Env) {
	env := devservertest.Start(t)
	api, _ := env.SignedIn(t)
	return NewService(api, validator.New(), time.Minute, nil), env
}

func TestCreateGetRoundTrip(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	in := newPatient("Ada Lovelace")
	in.ID = 7
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 7, created.ID)

	got, err := svc.Get(ctx, 7)
	require.NoError(t, err)

	in.Normalize()
	assert.Equal(t, in.Payload(true), got.Payload(true))
	assert.Equal(t, model.GenderFemale, got.Gender)
	assert.Equal(t, model.BloodType("O+"), got.BloodType)
}

func TestCreateAssignsNextID(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	next, err := svc.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	first, err := svc.Create(ctx, newPatient("First"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)

	p := newPatient("Tenth")
	p.ID = 10
	_, err = svc.Create(ctx, p)
	require.NoError(t, err)

	next, err = svc.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, next)
}

func TestCreateRejectsTakenID(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	p := newPatient("Twin")
	p.ID = 3
	_, err := svc.Create(ctx, p)
	require.NoError(t, err)

	_, err = svc.Create(ctx, p)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, errors.FieldErrors(err), "id")
}

func TestCreateInvalidNeverReachesBackend(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	api := client.New(client.Config{BaseURL: ts.URL}, session.NewMemoryStore())
	svc := NewService(api, validator.New(), 0, nil)

	p := newPatient("A")
	p.ID = 5
	p.Age = 130
	_, err := svc.Create(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, errors.FieldErrors(err), "fullname")
	assert.Contains(t, errors.FieldErrors(err), "age")
	assert.Zero(t, calls)
}

func TestGetMissingIsNotFound(t *testing.T) {
	svc, _ := signedIn(t)
	_, err := svc.Get(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestOtherAccountsPatientsAreHidden(t *testing.T) {
	env := devservertest.Start(t)
	ctx := context.Background()

	apiA, _ := env.SignedIn(t)
	apiB, _ := env.SignedIn(t)
	a := NewService(apiA, validator.New(), 0, nil)
	b := NewService(apiB, validator.New(), 0, nil)

	p := newPatient("Private")
	p.ID = 1
	_, err := a.Create(ctx, p)
	require.NoError(t, err)

	list, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = b.Get(ctx, 1)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateReplacesAndInvalidates(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, newPatient("Before"))
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	_, ok := svc.Cached(created.ID)
	require.True(t, ok)

	edit := newPatient("After")
	edit.Age = 43
	updated, err := svc.Update(ctx, created.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "After", updated.FullName)

	_, ok = svc.Cached(created.ID)
	assert.False(t, ok)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 43, got.Age)
}

func TestDeleteThenListAndGet(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	keep, err := svc.Create(ctx, newPatient("Keep"))
	require.NoError(t, err)
	gone, err := svc.Create(ctx, newPatient("Gone"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, gone.ID))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	_, err = svc.Get(ctx, gone.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(svc.Delete(ctx, gone.ID)))
}

func TestUploadProfilePicture(t *testing.T) {
	svc, env := signedIn(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, newPatient("Pictured"))
	require.NoError(t, err)

	url, err := svc.UploadProfilePicture(ctx, p.ID, model.Image{Filename: "face.png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Contains(t, url, "/media/patients/profile_pictures/")

	data, err := env.Server.Store().GetMedia(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProfilePicture)
	assert.Equal(t, url, *got.ProfilePicture)
}

func TestUploadProfilePictureRequiresData(t *testing.T) {
	svc, _ := signedIn(t)
	_, err := svc.UploadProfilePicture(context.Background(), 1, model.Image{Filename: "empty.png"})
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateWithPicturePartialFailure(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, newPatient("Partial"))
	require.NoError(t, err)

	updated, err := svc.UpdateWithPicture(ctx, p.ID, newPatient("Renamed"), &model.Image{Filename: "x.png"})
	require.Error(t, err)
	var partial *PartialUpdateError
	require.True(t, stderrors.As(err, &partial))
	assert.Equal(t, p.ID, partial.PatientID)
	require.NotNil(t, updated)
	assert.Equal(t, "Renamed", updated.FullName)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.FullName)
	assert.Nil(t, got.ProfilePicture)
}

func TestUpdateWithPicture(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, newPatient("Whole"))
	require.NoError(t, err)

	updated, err := svc.UpdateWithPicture(ctx, p.ID, newPatient("Whole"), &model.Image{Filename: "x.png", Data: []byte{1}})
	require.NoError(t, err)
	require.NotNil(t, updated.ProfilePicture)
}

func TestAddReportAndReload(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, newPatient("Reported"))
	require.NoError(t, err)
	_, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)

	got, err := svc.AddReportAndReload(ctx, p.ID, model.Report{Title: "CBC", Content: "blasts 30%"})
	require.NoError(t, err)
	require.Len(t, got.Reports, 1)
	assert.Equal(t, "CBC", got.Reports[0].Title)
	assert.Equal(t, "N/A", got.Reports[0].Medication)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, got.Reports[0].Date)

	cached, ok := svc.Cached(p.ID)
	require.True(t, ok)
	assert.Len(t, cached.Reports, 1)
}

func TestAddReportValidation(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	_, err := svc.AddReport(ctx, 1, model.Report{Title: "CBC"})
	require.Error(t, err)
	assert.Contains(t, errors.FieldErrors(err), "content")

	_, err = svc.AddReport(ctx, 999, model.Report{Title: "CBC", Content: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, errors.FieldErrors(err), "patient")
}

func TestDeleteClassificationResult(t *testing.T) {
	svc, env := signedIn(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, newPatient("Classified"))
	require.NoError(t, err)

	owner := p.Owner
	stored, err := env.Server.Store().AddResults(ctx, owner, p.ID, []model.ClassificationResult{
		{Image: "/media/patients/results/s_1.jpg", Label: "Blast", Confidence: 0.97},
		{Image: "/media/patients/results/s_2.jpg", Label: "Basophil", Confidence: 0.93},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 2)

	require.NoError(t, svc.DeleteClassificationResult(ctx, stored[0].ID))
	_, ok := svc.Cached(p.ID)
	assert.False(t, ok)

	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, stored[1].ID, got.Results[0].ID)

	err = svc.DeleteClassificationResult(ctx, stored[0].ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestCachedReturnsCopy(t *testing.T) {
	svc, _ := signedIn(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, newPatient("Copy"))
	require.NoError(t, err)
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	got.FullName = "Mutated"

	cached, ok := svc.Cached(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Copy", cached.FullName)
}
