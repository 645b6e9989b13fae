package rest

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Suggester proposes a corrected query. An empty suggestion means the
// query looks fine as written.
type Suggester interface {
	Suggest(ctx context.Context, q string) (string, error)
}

// SpellcheckHandler serves GET /spellcheck.
type SpellcheckHandler struct {
	suggester Suggester
}

func NewSpellcheckHandler(suggester Suggester) *SpellcheckHandler {
	return &SpellcheckHandler{suggester: suggester}
}

type spellcheckResponse struct {
	Suggestion *string `json:"suggestion"`
}

func (h *SpellcheckHandler) Handle(c echo.Context) error {
	suggestion, err := h.suggester.Suggest(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "spellcheck failed")
	}

	resp := spellcheckResponse{}
	if suggestion != "" {
		resp.Suggestion = &suggestion
	}
	return c.JSON(http.StatusOK, resp)
}
