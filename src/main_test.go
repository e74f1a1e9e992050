package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"tixcore/src/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB    *gorm.DB
	Mock  *sqlmock.Sqlmock
	Token *string
}

// testAuthContext stands in for the JWT middleware so route tests don't need
// a user row behind every request.
func testAuthContext(id uint, role string, org uint) gin.HandlerFunc {
	email := faker.Email()
	return func(ctx *gin.Context) {
		ctx.Set("id", id)
		ctx.Set("email", email)
		ctx.Set("role", role)
		ctx.Set("org", org)
	}
}

func (s *TestSuite) SetupSuite() {
	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = &mock

	token, err := generateJWT("someone@example.com", 1, 1)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
		return
	}
	s.Token = &token
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestPaymentWebhookRejectsMalformedBody() {
	router := setupRouter()
	paymentWebhookRoute(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/payments/notification", strings.NewReader(`{"order_id":`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func (s *TestSuite) TestScanRequiresAuth() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(func(ctx *gin.Context) {
		if !strings.HasPrefix(ctx.Request.Header.Get("Authorization"), "Bearer") {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	})
	scanHandlers(apiv1)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/scan", strings.NewReader(`{"code":"TIX-ABC12345-1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 401, w.Code)
}

func (s *TestSuite) TestCheckoutValidation() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(testAuthContext(1, "user", 0))
	checkoutHandlers(apiv1)

	s.Run("Should reject a checkout with no quantity", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/checkout", strings.NewReader(`{"event_id":3}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)

		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		errMsg := gjson.GetBytes(rbytes, "error").String()
		assert.NotEmpty(s.T(), errMsg)
	})

	s.Run("Should return 404 for an unknown event", func() {
		mock := *s.Mock
		mock.
			ExpectQuery(`SELECT \* FROM "events"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/checkout", strings.NewReader(`{"event_id":99,"quantity":2}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestTransactionRoutes() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(testAuthContext(7, "user", 0))
	transactionHandlers(apiv1)

	token := *s.Token
	s.Run("Should return the buyer's transactions", func() {
		mock := *s.Mock
		mock.
			ExpectQuery(`SELECT \* FROM "transactions"`).
			WillReturnRows(sqlmock.
				NewRows([]string{"id", "external_order_id", "buyer_id", "status"}).
				AddRow("0b7c9071-5e0c-4c59-a2f3-64e36a14a7a9", "TIX-ABC12345", 7, "completed"))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/transactions", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Equal(s.T(), int64(1), gjson.GetBytes(rbytes, "count").Int())
		assert.Equal(s.T(), "TIX-ABC12345", gjson.GetBytes(rbytes, "data.0.order_id").String())
	})

	s.Run("Should hide reconciliations from non-admins", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/reconciliations", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 403, w.Code)
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
