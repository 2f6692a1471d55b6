package helper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/model/response"
	"taskmanager/pkg/logger"
)

func sendDomainError(err error) (*httptest.ResponseRecorder, response.ErrorResponse) {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)

	SendDomainError(c, logger.NewNop(), err)

	var body response.ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body
}

func TestSendDomainError(t *testing.T) {
	RegisterTestingT(t)

	verr := &domain.ValidationError{}
	verr.Add("title", "title is required")

	rr, body := sendDomainError(fmt.Errorf("create: %w", verr))
	Expect(rr.Code).To(Equal(http.StatusBadRequest))
	Expect(body.Error.Code).To(Equal(CodeValidation))
	Expect(body.Error.Errors).To(ConsistOf(response.ValidationError{Field: "title", Message: "title is required"}))

	rr, body = sendDomainError(domain.ErrNotFound)
	Expect(rr.Code).To(Equal(http.StatusNotFound))
	Expect(body.Error.Code).To(Equal(CodeNotFound))

	rr, body = sendDomainError(fmt.Errorf("update: %w", domain.ErrConflict))
	Expect(rr.Code).To(Equal(http.StatusConflict))
	Expect(body.Error.Code).To(Equal(CodeConflict))

	rr, body = sendDomainError(errors.New("disk on fire"))
	Expect(rr.Code).To(Equal(http.StatusInternalServerError))
	Expect(body.Error.Code).To(Equal(CodeInternal))
	Expect(rr.Body.String()).NotTo(ContainSubstring("disk on fire"))
}
