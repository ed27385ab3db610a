package controller

import (
	"monitoring-workspace-be/internal/dto"
	"monitoring-workspace-be/internal/pkg/serverutils"
	"monitoring-workspace-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWorkspaceController interface {
	RegisterRoutes(r fiber.Router)
}

type workspaceController struct {
	service   service.IWorkspaceService
	jwtSecret string
}

func NewWorkspaceController(service service.IWorkspaceService, jwtSecret string) IWorkspaceController {
	return &workspaceController{service: service, jwtSecret: jwtSecret}
}

func (c *workspaceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/workspace/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))

	h.Get("", c.Snapshot)
	h.Get("/view", c.View)

	h.Get("/sites", c.Sites)
	h.Put("/sites/selected", c.SelectSite)
	h.Post("/sites/refresh", c.RefreshSites)

	h.Get("/context", c.Resolve)
	h.Put("/context/tab", c.SetTabContext)
	h.Put("/context/section", c.SetSectionContext)

	h.Post("/tabs", c.OpenTab)
	h.Post("/tabs/close", c.CloseTab)
	h.Post("/tabs/activate", c.ActivateTab)
	h.Post("/tabs/rename", c.RenameTab)
	h.Post("/tabs/reorder", c.ReorderTabs)
	h.Post("/tabs/mode/toggle", c.ToggleTabMode)

	h.Post("/grid/init", c.InitializeGrid)
	h.Post("/grid/sections", c.AddSection)
	h.Post("/grid/split", c.SplitSection)
	h.Post("/grid/remove", c.RemoveSection)
	h.Post("/grid/assign", c.AssignPage)
	h.Post("/grid/activate", c.ActivateSection)
	h.Post("/grid/mode/toggle", c.ToggleGridMode)
}

// respond maps the service error or renders data in the success envelope.
func respond[T any](ctx *fiber.Ctx, message string, data T, err error) error {
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse(message, data))
}

// handle decodes and validates a body of type Req and passes it to fn.
func handle[Req any, Res any](message string, fn func(ctx *fiber.Ctx, caller service.Caller, req *Req) (Res, error)) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		caller, err := callerFrom(ctx)
		if err != nil {
			return err
		}
		var req Req
		if len(ctx.Body()) > 0 {
			if err := ctx.BodyParser(&req); err != nil {
				return serverutils.BadRequest("Invalid request body")
			}
		}
		if err := serverutils.ValidateRequest(&req); err != nil {
			return err
		}
		res, err := fn(ctx, caller, &req)
		return respond(ctx, message, res, err)
	}
}

func (c *workspaceController) Snapshot(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Snapshot(ctx.UserContext(), caller, ctx.Query("route"))
	return respond(ctx, "Success get workspace", res, err)
}

func (c *workspaceController) View(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.View(ctx.UserContext(), caller, ctx.Query("route"))
	return respond(ctx, "Success get view", res, err)
}

// --- sites ---

func (c *workspaceController) Sites(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Sites(ctx.UserContext(), caller)
	return respond(ctx, "Success get sites", res, err)
}

func (c *workspaceController) RefreshSites(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.RefreshSites(ctx.UserContext(), caller)
	return respond(ctx, "Success refresh sites", res, err)
}

func (c *workspaceController) SelectSite(ctx *fiber.Ctx) error {
	return handle("Success select site", func(ctx *fiber.Ctx, caller service.Caller, req *dto.SelectSiteRequest) (*dto.SitesResponse, error) {
		return c.service.SelectSite(ctx.UserContext(), caller, req)
	})(ctx)
}

// --- site context ---

func (c *workspaceController) Resolve(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Resolve(ctx.UserContext(), caller, ctx.Query("tabId"), ctx.Query("sectionId"))
	return respond(ctx, "Success resolve site context", res, err)
}

func (c *workspaceController) SetTabContext(ctx *fiber.Ctx) error {
	return handle("Success set tab site", func(ctx *fiber.Ctx, caller service.Caller, req *dto.TabContextRequest) (*dto.ContextResponse, error) {
		return c.service.SetTabContext(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) SetSectionContext(ctx *fiber.Ctx) error {
	return handle("Success set section site", func(ctx *fiber.Ctx, caller service.Caller, req *dto.SectionContextRequest) (*dto.ContextResponse, error) {
		return c.service.SetSectionContext(ctx.UserContext(), caller, req)
	})(ctx)
}

// --- tabs ---

func (c *workspaceController) OpenTab(ctx *fiber.Ctx) error {
	return handle("Success open tab", func(ctx *fiber.Ctx, caller service.Caller, req *dto.OpenTabRequest) (*dto.OpenTabResponse, error) {
		return c.service.OpenTab(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) CloseTab(ctx *fiber.Ctx) error {
	return handle("Success close tab", func(ctx *fiber.Ctx, caller service.Caller, req *dto.CloseTabRequest) (*dto.TabsMutationResponse, error) {
		return c.service.CloseTab(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) ActivateTab(ctx *fiber.Ctx) error {
	return handle("Success activate tab", func(ctx *fiber.Ctx, caller service.Caller, req *dto.ActivateTabRequest) (*dto.TabsMutationResponse, error) {
		return c.service.ActivateTab(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) RenameTab(ctx *fiber.Ctx) error {
	return handle("Success rename tab", func(ctx *fiber.Ctx, caller service.Caller, req *dto.RenameTabRequest) (*dto.TabsMutationResponse, error) {
		return c.service.RenameTab(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) ReorderTabs(ctx *fiber.Ctx) error {
	return handle("Success reorder tabs", func(ctx *fiber.Ctx, caller service.Caller, req *dto.ReorderTabsRequest) (*dto.TabsMutationResponse, error) {
		return c.service.ReorderTabs(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) ToggleTabMode(ctx *fiber.Ctx) error {
	return handle("Success toggle tab mode", func(ctx *fiber.Ctx, caller service.Caller, req *dto.ToggleModeRequest) (*dto.ToggleModeResponse, error) {
		return c.service.ToggleTabMode(ctx.UserContext(), caller, req)
	})(ctx)
}

// --- grid ---

func (c *workspaceController) InitializeGrid(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.InitializeGrid(ctx.UserContext(), caller)
	return respond(ctx, "Success initialize grid", res, err)
}

func (c *workspaceController) AddSection(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.AddSection(ctx.UserContext(), caller)
	return respond(ctx, "Success add section", res, err)
}

func (c *workspaceController) SplitSection(ctx *fiber.Ctx) error {
	return handle("Success split section", func(ctx *fiber.Ctx, caller service.Caller, req *dto.SplitSectionRequest) (*dto.SplitSectionResponse, error) {
		return c.service.SplitSection(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) RemoveSection(ctx *fiber.Ctx) error {
	return handle("Success remove section", func(ctx *fiber.Ctx, caller service.Caller, req *dto.SectionRequest) (*dto.GridMutationResponse, error) {
		return c.service.RemoveSection(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) AssignPage(ctx *fiber.Ctx) error {
	return handle("Success assign page", func(ctx *fiber.Ctx, caller service.Caller, req *dto.AssignPageRequest) (*dto.GridMutationResponse, error) {
		return c.service.AssignPage(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) ActivateSection(ctx *fiber.Ctx) error {
	return handle("Success activate section", func(ctx *fiber.Ctx, caller service.Caller, req *dto.SectionRequest) (*dto.GridMutationResponse, error) {
		return c.service.ActivateSection(ctx.UserContext(), caller, req)
	})(ctx)
}

func (c *workspaceController) ToggleGridMode(ctx *fiber.Ctx) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ToggleGridMode(ctx.UserContext(), caller)
	return respond(ctx, "Success toggle grid mode", res, err)
}
