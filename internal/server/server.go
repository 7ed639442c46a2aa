package server

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/avoronkov/tutorhub/internal/model"
	"github.com/avoronkov/tutorhub/internal/service"
)

// Server — HTTP-обвязка ядра. Тонкий слой: разобрать запрос, провалидировать,
// позвать сервис, отобразить доменную ошибку в код ответа.
type Server struct {
	app          *fiber.App
	users        *service.UserService
	availability *service.AvailabilityService
	bookings     *service.BookingService
	ledgers      *service.LedgerService
	validate     *validator.Validate
	logger       *zap.Logger
}

func New(
	users *service.UserService,
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	ledgers *service.LedgerService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		users:        users,
		availability: availability,
		bookings:     bookings,
		ledgers:      ledgers,
		validate:     validator.New(),
		logger:       logger,
	}

	app := fiber.New(fiber.Config{
		AppName:      "tutorhub",
		ErrorHandler: s.handleError,
	})
	app.Use(s.requestLogger())

	app.Get("/health", s.health)

	app.Post("/users", s.createUser)
	app.Get("/users/:id", s.getUser)
	app.Patch("/users/:id/timezone", s.updateUserTimezone)

	app.Get("/tutors/:id/availability", s.getAvailability)
	app.Post("/tutors/:id/rules", s.createRule)
	app.Get("/tutors/:id/rules", s.listRules)
	app.Patch("/rules/:id", s.updateRule)

	app.Post("/bookings", s.createBooking)
	app.Get("/appointments", s.listAppointments)
	app.Patch("/appointments/:id", s.updateAppointment)

	app.Post("/settlements", s.createSettlement)
	app.Get("/ledgers", s.listLedgers)

	s.app = app
	return s
}

// Listen запускает HTTP-сервер
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown корректно останавливает сервер
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App отдаёт fiber-приложение (нужно тестам)
func (s *Server) App() *fiber.App {
	return s.app
}

// handleError отображает доменные ошибки в HTTP-коды.
// Конфликт бронирования не ретраится сервером: клиент должен выбрать
// другой слот, поэтому 409 уходит наружу как есть.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrNothingToSettle),
		errors.Is(err, model.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.Is(err, model.ErrInvalidRange):
		status = fiber.StatusBadRequest
	case errors.Is(err, model.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, model.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	}

	if status == fiber.StatusInternalServerError {
		s.logger.Error("Unhandled error", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(started)),
		)

		return err
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
