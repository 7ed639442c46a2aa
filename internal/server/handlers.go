package server

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/avoronkov/tutorhub/internal/localtime"
	"github.com/avoronkov/tutorhub/internal/model"
	"github.com/avoronkov/tutorhub/internal/service"
)

func (s *Server) createUser(c *fiber.Ctx) error {
	var req userRequest
	if err := parseBody(c, s.validate, &req); err != nil {
		return err
	}

	user, err := s.users.Register(c.Context(), &model.User{
		Name:            req.Name,
		Email:           req.Email,
		Timezone:        req.Timezone,
		IsTutor:         req.IsTutor,
		HourlyRateCents: req.HourlyRateCents,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (s *Server) getUser(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

func (s *Server) updateUserTimezone(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req timezoneRequest
	if err := parseBody(c, s.validate, &req); err != nil {
		return err
	}

	user, err := s.users.ChangeTimezone(c.Context(), userID, req.Timezone)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

func (s *Server) getAvailability(c *fiber.Ctx) error {
	tutorID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	from, err := localtime.ParseDate(c.Query("from"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := localtime.ParseDate(c.Query("to"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
	}

	slots, err := s.availability.GetOpenSlots(c.Context(), tutorID, from, to)
	if err != nil {
		return err
	}
	if slots == nil {
		slots = []model.Slot{}
	}

	return c.JSON(fiber.Map{"slots": slots})
}

func (s *Server) createRule(c *fiber.Ctx) error {
	tutorID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ruleRequest
	if err := parseBody(c, s.validate, &req); err != nil {
		return err
	}

	rule := &model.WeeklyAvailabilityRule{
		TutorID:     tutorID,
		Weekday:     req.Weekday,
		StartHour:   req.StartHour,
		StartMinute: req.StartMinute,
		EndHour:     req.EndHour,
		EndMinute:   req.EndMinute,
	}

	created, err := s.availability.CreateRule(c.Context(), rule)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) listRules(c *fiber.Ctx) error {
	tutorID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	rules, err := s.availability.ListRules(c.Context(), tutorID)
	if err != nil {
		return err
	}
	if rules == nil {
		rules = []*model.WeeklyAvailabilityRule{}
	}

	return c.JSON(fiber.Map{"rules": rules})
}

func (s *Server) updateRule(c *fiber.Ctx) error {
	ruleID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req rulePatchRequest
	if err := parseBody(c, s.validate, &req); err != nil {
		return err
	}

	patch := service.RulePatch{
		Weekday:     req.Weekday,
		StartHour:   req.StartHour,
		StartMinute: req.StartMinute,
		EndHour:     req.EndHour,
		EndMinute:   req.EndMinute,
		IsActive:    req.IsActive,
	}

	updated, err := s.availability.UpdateRule(c.Context(), req.TutorID, ruleID, patch)
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

func (s *Server) createBooking(c *fiber.Ctx) error {
	var req bookingRequest
	if err := parseBody(c, s.validate, &req); err != nil {
		return err
	}

	appointment, err := s.bookings.Book(c.Context(), service.BookRequest{
		TutorID:        req.TutorID,
		StudentID:      req.StudentID,
		Subject:        req.Subject,
		Start:          req.Start,
		End:            req.End,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(appointment)
}

func (s *Server) listAppointments(c *fiber.Ctx) error {
	tutorParam := c.Query("tutor_id")
	studentParam := c.Query("student_id")

	var (
		appointments []*model.Appointment
		err          error
	)
	switch {
	case tutorParam != "" && studentParam == "":
		var tutorID int64
		if tutorID, err = parseInt64(tutorParam); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid tutor_id")
		}
		appointments, err = s.bookings.ListByTutor(c.Context(), tutorID)
	case studentParam != "" && tutorParam == "":
		var studentID int64
		if studentID, err = parseInt64(studentParam); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid student_id")
		}
		appointments, err = s.bookings.ListByStudent(c.Context(), studentID)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "exactly one of tutor_id or student_id is required")
	}
	if err != nil {
		return err
	}
	if appointments == nil {
		appointments = []*model.Appointment{}
	}

	return c.JSON(fiber.Map{"appointments": appointments})
}

func (s *Server) updateAppointment(c *fiber.Ctx) error {
	appointmentID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req transitionRequest
	if err := parseBody(c, s.validate, &req); err != nil {
		return err
	}

	appointment, err := s.bookings.Transition(c.Context(), appointmentID, req.ActorID, model.AppointmentStatus(req.Status))
	if err != nil {
		return err
	}

	return c.JSON(appointment)
}

func (s *Server) createSettlement(c *fiber.Ctx) error {
	var req settlementRequest
	if err := parseBody(c, s.validate, &req); err != nil {
		return err
	}

	payment, err := s.ledgers.Settle(c.Context(), req.StudentID, req.TutorID, req.Subject)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

func (s *Server) listLedgers(c *fiber.Ctx) error {
	studentID, err := optionalInt64(c.Query("student_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid student_id")
	}
	tutorID, err := optionalInt64(c.Query("tutor_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tutor_id")
	}

	ledgers, err := s.ledgers.List(c.Context(), studentID, tutorID)
	if err != nil {
		return err
	}

	resp := make([]ledgerResponse, 0, len(ledgers))
	for _, ledger := range ledgers {
		resp = append(resp, ledgerResponse{
			LectureHoursLedger: ledger,
			PaymentStatus:      s.ledgers.Classify(ledger),
		})
	}

	return c.JSON(fiber.Map{"ledgers": resp})
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := parseInt64(c.Params(name))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func parseInt64(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func optionalInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := parseInt64(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseBody(c *fiber.Ctx, validate *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
