package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("medication", nil)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(BadRequest("bad", nil)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("dup", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal(fmt.Errorf("disk"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("plain")))
}

func TestHTTPStatusWrapped(t *testing.T) {
	err := fmt.Errorf("remove: %w", NotFound("medication", nil))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrBadRequest))
}

func TestErrorMessage(t *testing.T) {
	err := BadRequest("invalid medication", fmt.Errorf("dose is required"))
	assert.Equal(t, "invalid medication: dose is required", err.Error())
	assert.Equal(t, "medication not found", NotFound("medication", nil).Error())
}
