package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimipsen/grouper/pkg/grouping"
	"github.com/kimipsen/grouper/pkg/models"
)

// ValidateInput checks grouping settings against a population size without
// running a grouping
func (h *Handler) ValidateInput(c *gin.Context) {
	var input struct {
		PeopleCount *int                    `json:"people_count"`
		People      []models.Person         `json:"people"`
		Settings    models.GroupingSettings `json:"settings"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"is_valid": false,
			"error":    err.Error(),
		})
		return
	}

	count := len(input.People)
	if input.PeopleCount != nil {
		count = *input.PeopleCount
	}

	if err := checkRequestPeople(input.People); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"is_valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, grouping.ValidateSettings(count, input.Settings))
}

// checkRequestPeople guards stateless requests, where every person needs an
// id the caller can match against the returned groups
func checkRequestPeople(people []models.Person) error {
	for i, p := range people {
		if p.ID == "" {
			return fmt.Errorf("person %d: id is required", i+1)
		}
	}
	return models.CheckPeople(people)
}
