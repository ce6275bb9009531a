package response

import (
	"net/http"

	"saas_backend/internal/lib/apperr"

	"github.com/go-chi/render"
)

// * Fail пишет ошибку сервиса с кодом из apperr. Внутренние ошибки наружу не раскрываются.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, apperr.Status(err))
	render.JSON(w, r, Error(apperr.Message(err)))
}
