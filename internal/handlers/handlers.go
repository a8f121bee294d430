package handlers

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"booklend/internal/auth"
	"booklend/internal/database"
	"booklend/internal/repositories"
	"booklend/internal/services"
)

type Dependencies struct {
	DB         *gorm.DB
	JWTSecret  string
	Users      repositories.UserRepository
	Loans      services.LoanService
	Collection services.CollectionService
	Stats      services.StatsService
}

type LendingHandler struct {
	db         *gorm.DB
	loans      services.LoanService
	collection services.CollectionService
	stats      services.StatsService
}

var registerValidatorsOnce sync.Once

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	registerValidatorsOnce.Do(registerValidators)

	h := &LendingHandler{
		db:         deps.DB,
		loans:      deps.Loans,
		collection: deps.Collection,
		stats:      deps.Stats,
	}

	r.GET("/manage/health", h.healthCheck)

	api := r.Group("/api", auth.RequireAuth(deps.JWTSecret, deps.DB, deps.Users))

	// Loan lifecycle
	loans := api.Group("/loans")
	loans.POST("", h.createLoan)
	loans.GET("/inbox", h.listInbox)
	loans.GET("/outbox", h.listOutbox)
	loans.POST("/:id/accept", h.acceptLoan)
	loans.POST("/:id/reject", h.rejectLoan)
	loans.POST("/:id/return", h.returnLoan)
	loans.POST("/:id/cancel", h.cancelLoan)

	// Owner collection (availability ledger)
	mine := api.Group("/users/me/books")
	mine.GET("", h.listMyBooks)
	mine.POST("", h.addMyBook)
	mine.PATCH("/:isbn/availability", h.setMyBookAvailability)
	mine.DELETE("/:isbn", h.removeMyBook)
	api.GET("/owners/:id/books/:isbn/availability", h.getAvailability)

	// Read-only statistics
	admin := api.Group("/admin", auth.RequireAdmin())
	admin.GET("/stats/loans", h.loanStats)
	admin.GET("/users/:id/stats", h.userStats)
}

// registerValidators adds the isbn_id tag to gin's validator.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	if err := v.RegisterValidation("isbn_id", validISBN); err != nil {
		log.Printf("[ERROR] registerValidators: %v", err)
	}
}

// validISBN accepts ISBN-like identifiers: digits, hyphens and a check character X.
func validISBN(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) == 0 || len(s) > 20 {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == 'X' || r == 'x':
		default:
			return false
		}
	}
	return digits > 0
}

func (h *LendingHandler) healthCheck(c *gin.Context) {
	if err := database.Ping(h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// mustActor returns the caller identity or aborts with 401.
func mustActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return actor, ok
}
