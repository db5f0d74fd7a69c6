package webserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/open-townhall/townhall/src/api/engine"
)

func TestRejectStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"budget exhausted", engine.ErrBudgetExhausted, http.StatusTooManyRequests},
		{"banned", &engine.BannedError{Reason: "exiled"}, http.StatusForbidden},
		{"unauthorized", engine.ErrUnauthorized, http.StatusForbidden},
		{"not found", engine.ErrNotFound, http.StatusNotFound},
		{"election in progress", engine.ErrElectionInProgress, http.StatusConflict},
		{"already candidate", engine.ErrAlreadyCandidate, http.StatusConflict},
		{"already voted", engine.ErrAlreadyVoted, http.StatusConflict},
		{"name taken", engine.ErrNameTaken, http.StatusConflict},
		{"election closed", engine.ErrElectionClosed, http.StatusGone},
		{"proposal closed", engine.ErrProposalClosed, http.StatusGone},
		{"unknown config key", engine.ErrUnknownConfigKey, http.StatusBadRequest},
		{"invalid config value", engine.ErrInvalidConfigValue, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			reject(c, tc.err)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

// Storage failures never leak driver details to the client.
func TestRejectHidesStorageDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	wrapped := errors.New("Error 2013: Lost connection to MySQL server")
	reject(c, &engine.StorageError{Op: "post create", Err: wrapped})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "MySQL")
	assert.Contains(t, w.Body.String(), "storage failure")
}

// Wrapped sentinels still map; handlers sometimes annotate before returning.
func TestRejectUnwraps(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	reject(c, errors.Join(errors.New("casting vote"), engine.ErrAlreadyVoted))
	assert.Equal(t, http.StatusConflict, w.Code)
}
