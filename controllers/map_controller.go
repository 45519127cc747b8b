package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/crowdsourcing/services"
)

// GET /question/:id/map-results/?submissions=1,2&limit=10
func (h *Handler) LocationQuestionResults(c *gin.Context) {
	qid, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, services.ErrNotFound)
		return
	}

	req := services.MapRequest{QuestionID: uint(qid), Query: c.Request.URL.Query()}
	if raw := c.Query("submissions"); raw != "" {
		ids, err := services.ParseIDList(raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		req.SubmissionIDs = ids
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.String(http.StatusBadRequest, "Invalid limit.")
			return
		}
		req.Limit = n
	}

	entries, err := h.Maps.Entries(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
