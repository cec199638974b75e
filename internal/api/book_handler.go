package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/summarist/internal/access"
)

// GetBook serves the book the access guard loaded and cleared.
func GetBook(c *gin.Context) {
	c.JSON(http.StatusOK, access.BookFrom(c))
}

// GetBookAccess reports the guard decision for the caller.
func GetBookAccess(c *gin.Context) {
	book := access.BookFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"bookId":          book.ID,
		"requiresPremium": access.RequiresPremium(book),
		"decision":        access.DecisionFrom(c),
	})
}
