package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/mansoorceksport/gymdesk/internal/pkg/pagination"
	"github.com/mansoorceksport/gymdesk/internal/service"
	"github.com/mansoorceksport/gymdesk/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// MemberHandler serves the member table, stats cards and subscription renewals
type MemberHandler struct {
	members *service.MembershipService
	exports *service.ExportService
}

func NewMemberHandler(members *service.MembershipService, exports *service.ExportService) *MemberHandler {
	return &MemberHandler{members: members, exports: exports}
}

// MemberView is a member with its subscription status derived for today
type MemberView struct {
	*domain.Member
	Status        domain.SubscriptionStatus `json:"status"`
	DaysRemaining *int                      `json:"days_remaining"`
}

func (h *MemberHandler) view(m *domain.Member) MemberView {
	today := h.members.Today()
	v := MemberView{Member: m, Status: domain.DeriveStatus(m.EndDate, today)}
	if d, ok := domain.DaysRemaining(m.EndDate, today); ok {
		v.DaysRemaining = &d
	}
	return v
}

func (h *MemberHandler) views(members []*domain.Member) []MemberView {
	out := make([]MemberView, len(members))
	for i, m := range members {
		out[i] = h.view(m)
	}
	return out
}

// List handles GET /v1/members
// Query params: status (all|active|expiring_soon|expired), q, page, limit,
// sort=display, refresh=true (reload from the store first)
func (h *MemberHandler) List(c *fiber.Ctx) error {
	filter, err := domain.ParseStatusFilter(c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}

	var members []*domain.Member
	if c.QueryBool("refresh") {
		members, err = h.members.List(c.UserContext())
	} else {
		members, err = h.members.Members(c.UserContext())
	}
	if err != nil {
		return respondError(c, err)
	}

	today := h.members.Today()
	members = domain.FilterMembers(members, filter, c.Query("q"), today)
	if c.Query("sort") == "display" {
		members = domain.SortForDisplay(members, today)
	}

	return c.JSON(pagination.NewResponse(h.views(members), pagination.GetParams(c)))
}

// Stats handles GET /v1/members/stats
func (h *MemberHandler) Stats(c *fiber.Ctx) error {
	members, err := h.members.Members(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(domain.ComputeStats(members, h.members.Today()))
}

// Search handles GET /v1/members/search?term=
func (h *MemberHandler) Search(c *fiber.Ctx) error {
	if _, err := h.members.Members(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.views(h.members.Search(c.Query("term"))))
}

// Reload handles POST /v1/members/reload
func (h *MemberHandler) Reload(c *fiber.Ctx) error {
	members, err := h.members.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": len(members)})
}

// Busy handles GET /v1/members/busy
func (h *MemberHandler) Busy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"busy": h.members.Busy()})
}

// Get handles GET /v1/members/:id
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	m, err := h.members.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.view(m))
}

// Create handles POST /v1/members
func (h *MemberHandler) Create(c *fiber.Ctx) error {
	var in domain.MemberInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}

	m, err := h.members.Add(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.view(m))
}

// Update handles PATCH /v1/members/:id
func (h *MemberHandler) Update(c *fiber.Ctx) error {
	var patch domain.MemberPatch
	if err := c.BodyParser(&patch); err != nil {
		return badBody(c)
	}

	m, err := h.members.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.view(m))
}

// Delete handles DELETE /v1/members/:id
func (h *MemberHandler) Delete(c *fiber.Ctx) error {
	if err := h.members.Remove(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type extendRequest struct {
	Months int    `json:"months"`
	Policy string `json:"policy"`
}

// Extend handles POST /v1/members/:id/extend
// Body: {"months": 1, "policy": "from_today" | "from_current_end"}
func (h *MemberHandler) Extend(c *fiber.Ctx) error {
	req := extendRequest{Months: 1}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	policy, err := domain.ParseExtensionPolicy(strings.TrimSpace(req.Policy))
	if err != nil {
		return respondError(c, err)
	}

	ext, err := h.members.Extend(c.UserContext(), c.Params("id"), req.Months, policy)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ext)
}

// Export handles POST /v1/members/export
func (h *MemberHandler) Export(c *fiber.Ctx) error {
	export, err := h.exports.Export(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	telemetry.AddSpanEvent(c, "roster.exported",
		attribute.String("export.key", export.Key),
		attribute.Int("export.rows", export.Rows),
	)
	return c.Status(fiber.StatusCreated).JSON(export)
}
