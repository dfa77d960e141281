package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crivus/quiziq/internal/domain"
)

func TestGranularityValid(t *testing.T) {
	assert.True(t, domain.GranularityDay.Valid())
	assert.True(t, domain.GranularityMonth.Valid())
	assert.True(t, domain.GranularityYear.Valid())
	assert.False(t, domain.Granularity("hour").Valid())
	assert.False(t, domain.Granularity("").Valid())
}

func TestGranularityDateFormat(t *testing.T) {
	assert.Equal(t, "YYYY-MM-DD", domain.GranularityDay.DateFormat())
	assert.Equal(t, "YYYY-MM", domain.GranularityMonth.DateFormat())
	assert.Equal(t, "YYYY", domain.GranularityYear.DateFormat())
}

func TestExtractOrigin(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "https with path",
			url:  "https://example.com/quiz/start?utm_source=x",
			want: "https://example.com",
		},
		{
			name: "http with port",
			url:  "http://localhost:3000/landing",
			want: "http://localhost:3000",
		},
		{
			name: "no path",
			url:  "https://shop.example.com",
			want: "https://shop.example.com",
		},
		{
			name:    "relative path",
			url:     "/quiz/start",
			wantErr: true,
		},
		{
			name:    "missing host",
			url:     "https://",
			wantErr: true,
		},
		{
			name:    "garbage",
			url:     "://nope",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ExtractOrigin(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				var verr *domain.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", domain.Truncate("abc", 10))
	assert.Equal(t, "abc", domain.Truncate("abcdef", 3))
	assert.Equal(t, "", domain.Truncate("", 3))
}

func TestPrincipalIsAdmin(t *testing.T) {
	assert.True(t, domain.Principal{Role: domain.RoleAdmin}.IsAdmin())
	assert.False(t, domain.Principal{Role: domain.RoleUser}.IsAdmin())
}
