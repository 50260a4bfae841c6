package library

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfhub/pkg/models"
)

func TestReadCSV(t *testing.T) {
	in := "Title,Author,Status,type,total_pages,current_page,rating,start_date\n" +
		"Dune,Frank Herbert,finished,BOOK,412,412,5,2024-01-02\n" +
		",missing title,,,,,,\n" +
		"Naruto,\"Kishimoto, Masashi\",WISHLIST,MANGA,,,,\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Dune", *got[0].Title)
	assert.Equal(t, models.StatusFinished, *got[0].Status)
	assert.Equal(t, 412, *got[0].TotalPages)
	assert.Equal(t, 5, *got[0].Rating)
	assert.Equal(t, "2024-01-02", *got[0].StartDate)
	assert.Nil(t, got[0].CurrentVolume)

	assert.Equal(t, "Kishimoto, Masashi", *got[1].Author)
	assert.Equal(t, models.ContentType("MANGA"), *got[1].Type)
	assert.Nil(t, got[1].TotalPages)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("author\nx\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("title,author,rating\nDune,Herbert,five\n"))
	assert.ErrorContains(t, err, "line 2: rating")
}

func TestCSVRoundTripThroughService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, "user-a", EntryInput{
		Title: ptr("Dune"), Author: ptr("Frank Herbert"), Status: ptr(models.StatusFinished),
		TotalPages: ptr(412), Rating: ptr(5), Review: ptr("spice, \"worms\""), FinishDate: ptr("2024-02-01"),
	})
	require.NoError(t, err)

	entries, err := env.svc.List(ctx, "user-a", Filter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	inputs, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, inputs, 1)

	copied, err := env.svc.Create(ctx, "user-b", inputs[0])
	require.NoError(t, err)
	assert.Equal(t, "Dune", copied.Title)
	assert.Equal(t, models.StatusFinished, copied.Status)
	assert.Equal(t, `spice, "worms"`, *copied.Review)
	assert.Equal(t, "2024-02-01", copied.FinishDate.Format("2006-01-02"))
}
