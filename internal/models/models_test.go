package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "naive", input: "2025-02-01T11:00:00", want: time.Date(2025, 2, 1, 11, 0, 0, 0, time.UTC)},
		{name: "naive with fraction", input: "2025-02-01T11:00:00.123456", want: time.Date(2025, 2, 1, 11, 0, 0, 123456000, time.UTC)},
		{name: "utc", input: "2025-02-01T11:00:00Z", want: time.Date(2025, 2, 1, 11, 0, 0, 0, time.UTC)},
		{name: "offset", input: "2025-02-01T13:00:00+02:00", want: time.Date(2025, 2, 1, 11, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestTimestamp_JSON(t *testing.T) {
	ts := NewTimestamp(time.Date(2025, 2, 1, 11, 0, 0, 0, time.UTC))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-02-01T11:00:00Z"`, string(data))

	var decoded Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-02-01T11:00:00"`), &decoded))
	assert.True(t, ts.Equal(decoded.Time))

	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.True(t, decoded.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`42`), &decoded))
}

func TestValidateCreate(t *testing.T) {
	params := CreateTaskParams{Title: "  Buy milk ", Description: StringPtr("   ")}

	require.NoError(t, ValidateCreate(&params))
	assert.Equal(t, "Buy milk", params.Title)
	assert.Nil(t, params.Description)

	params = CreateTaskParams{Title: "ok", Description: StringPtr(" two liters ")}
	require.NoError(t, ValidateCreate(&params))
	require.NotNil(t, params.Description)
	assert.Equal(t, "two liters", *params.Description)

	params = CreateTaskParams{Title: "   "}
	assert.ErrorIs(t, ValidateCreate(&params), ErrTitleRequired)
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name            string
		params          UpdateTaskParams
		err             error
		wantTitle       *string
		wantDescription *string
	}{
		{
			name:   "no fields",
			params: UpdateTaskParams{ID: 1},
			err:    ErrNothingToUpdate,
		},
		{
			name:      "title trimmed",
			params:    UpdateTaskParams{ID: 1, Title: StringPtr("  new ")},
			wantTitle: StringPtr("new"),
		},
		{
			name:   "blank title",
			params: UpdateTaskParams{ID: 1, Title: StringPtr("   ")},
			err:    ErrTitleRequired,
		},
		{
			name:   "title too long",
			params: UpdateTaskParams{ID: 1, Title: StringPtr(strings.Repeat("t", MaxTitleLength+1))},
			err:    ErrTitleTooLong,
		},
		{
			name:      "multibyte title at the limit",
			params:    UpdateTaskParams{ID: 1, Title: StringPtr(strings.Repeat("é", MaxTitleLength))},
			wantTitle: StringPtr(strings.Repeat("é", MaxTitleLength)),
		},
		{
			name:   "only blank description",
			params: UpdateTaskParams{ID: 1, Description: StringPtr("  ")},
			err:    ErrNothingToUpdate,
		},
		{
			name:   "blank description dropped",
			params: UpdateTaskParams{ID: 1, Description: StringPtr("  "), Completed: BoolPtr(true)},
		},
		{
			name:            "description trimmed",
			params:          UpdateTaskParams{ID: 1, Description: StringPtr(" details ")},
			wantDescription: StringPtr("details"),
		},
		{
			name:   "description too long",
			params: UpdateTaskParams{ID: 1, Description: StringPtr(strings.Repeat("d", MaxDescriptionLength+1))},
			err:    ErrDescriptionTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.params
			err := ValidateUpdate(&params)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, params.Title)
			assert.Equal(t, tt.wantDescription, params.Description)
		})
	}
}

func TestUpdateTaskParams_Apply(t *testing.T) {
	ts := NewTimestamp(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	task := Task{ID: 1, Title: "old", Description: StringPtr("old"), CreatedAt: ts, UpdatedAt: ts}
	params := UpdateTaskParams{ID: 1, Description: StringPtr("new"), Completed: BoolPtr(true)}

	got := params.Apply(task)

	assert.Equal(t, "old", got.Title)
	assert.Equal(t, "new", *got.Description)
	assert.True(t, got.Completed)
	assert.Equal(t, ts, got.UpdatedAt)
	assert.Equal(t, "old", *task.Description)

	*params.Description = "mutated"
	assert.Equal(t, "new", *got.Description)
}

func TestSortForDisplay(t *testing.T) {
	older := NewTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := NewTimestamp(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	tasks := []Task{
		{ID: 1, Completed: true, CreatedAt: newer},
		{ID: 2, CreatedAt: older},
		{ID: 3, CreatedAt: newer},
		{ID: 4, CreatedAt: newer},
		{ID: 5, Completed: true, CreatedAt: older},
	}

	SortForDisplay(tasks)

	ids := make([]int64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	assert.Equal(t, []int64{4, 3, 2, 1, 5}, ids)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short", input: "milk", want: "milk"},
		{name: "at the limit", input: strings.Repeat("x", 60), want: strings.Repeat("x", 60)},
		{name: "long", input: strings.Repeat("x", 61), want: strings.Repeat("x", 60) + "..."},
		{name: "multibyte", input: strings.Repeat("ж", 61), want: strings.Repeat("ж", 60) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.input))
		})
	}
}

func TestTask_IsPlaceholder(t *testing.T) {
	assert.True(t, Task{ID: -1}.IsPlaceholder())
	assert.False(t, Task{ID: 1}.IsPlaceholder())
}
