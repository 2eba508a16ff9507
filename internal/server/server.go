package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"janvaani/internal/domain"
	"janvaani/internal/engine"
	"janvaani/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"already_supported"`
	Message string         `json:"message" example:"already supported"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the JanVaani API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("JanVaani API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAuth(group, cfg.Engine)
	registerComplaints(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrInvalidCredentials) {
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "already supported"),
		strings.Contains(lowered, "already submitted"),
		strings.Contains(lowered, "already registered"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "feedback requires"),
		strings.Contains(lowered, "invalid status transition"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "only the complaint owner"):
		return newAPIError(http.StatusForbidden, "forbidden", msg, nil)
	case strings.Contains(lowered, "invalid") ||
		strings.Contains(lowered, "missing") ||
		strings.Contains(lowered, "required") ||
		strings.Contains(lowered, "must be") ||
		strings.Contains(lowered, "reset token") ||
		strings.Contains(lowered, "password incorrect"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	open := map[string]bool{
		path.Join(basePath, "health"):                true,
		path.Join(basePath, "auth/citizen/register"): true,
		path.Join(basePath, "auth/citizen/login"):    true,
		path.Join(basePath, "auth/admin/register"):   true,
		path.Join(basePath, "auth/admin/login"):      true,
		path.Join(basePath, "auth/forgot-password"):  true,
		path.Join(basePath, "auth/reset-password"):   true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>JanVaani API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, e engine.Engine) {
	for _, role := range []string{domain.RoleCitizen, domain.RoleAdmin} {
		role := role
		huma.Register(api, huma.Operation{
			OperationID:   "register-" + role,
			Method:        http.MethodPost,
			Path:          "/auth/" + role + "/register",
			Summary:       "Register a " + role,
			DefaultStatus: http.StatusCreated,
			Errors:        []int{http.StatusBadRequest, http.StatusConflict},
		}, func(ctx context.Context, input *struct {
			Body RegisterRequest `json:"body"`
		}) (*struct {
			Body SessionResponse `json:"body"`
		}, error) {
			u, token, err := e.Register(ctx, engine.RegisterOptions{
				Role:     role,
				Name:     input.Body.Name,
				Email:    input.Body.Email,
				Password: input.Body.Password,
				Ward:     input.Body.Ward,
			})
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body SessionResponse `json:"body"`
			}{Body: SessionResponse{Token: token, User: userResponse(u), Awards: awardsResponse(e.Config)}}, nil
		})

		huma.Register(api, huma.Operation{
			OperationID: "login-" + role,
			Method:      http.MethodPost,
			Path:        "/auth/" + role + "/login",
			Summary:     "Log in a " + role,
			Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
		}, func(ctx context.Context, input *struct {
			Body LoginRequest `json:"body"`
		}) (*struct {
			Body SessionResponse `json:"body"`
		}, error) {
			u, token, err := e.Login(ctx, role, input.Body.Email, input.Body.Password)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body SessionResponse `json:"body"`
			}{Body: SessionResponse{Token: token, User: userResponse(u), Awards: awardsResponse(e.Config)}}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.GetUser(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{User: userResponse(u)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "forgot-password",
		Method:      http.MethodPost,
		Path:        "/auth/forgot-password",
		Summary:     "Request a password reset token",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Email string `json:"email"`
		} `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		token, err := e.ForgotPassword(ctx, input.Body.Email)
		if err != nil {
			return nil, handleError(err)
		}
		// Self-hosted deployments have no mailer; the token comes back directly.
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"resetToken": token}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-password",
		Method:      http.MethodPost,
		Path:        "/auth/reset-password",
		Summary:     "Reset password with a token",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		} `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := e.ResetPassword(ctx, input.Body.Token, input.Body.Password); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerComplaints(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-complaint",
		Method:        http.MethodPost,
		Path:          "/complaints",
		Summary:       "File a complaint",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateComplaintRequest `json:"body"`
	}) (*struct {
		Body ComplaintResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.RoleCitizen)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateComplaint(ctx, engine.ComplaintCreateOptions{
			OwnerID:     p.UserID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Category:    input.Body.Category,
			Priority:    input.Body.Priority,
			Ward:        input.Body.Ward,
			Latitude:    input.Body.Latitude,
			Longitude:   input.Body.Longitude,
			PhotoURL:    input.Body.PhotoURL,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ComplaintResponse `json:"body"`
		}{Body: complaintResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-complaints",
		Method:      http.MethodGet,
		Path:        "/complaints",
		Summary:     "List complaints",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Category string `query:"category"`
		Priority string `query:"priority"`
		Status   string `query:"status"`
		Ward     string `query:"ward"`
		Search   string `query:"search"`
		Page     int    `query:"page" default:"1"`
		Limit    int    `query:"limit" default:"50"`
	}) (*struct {
		Body []ComplaintResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		filter := repo.ComplaintFilter{
			Category: input.Category,
			Priority: input.Priority,
			Status:   input.Status,
			Ward:     input.Ward,
			Search:   input.Search,
			Page:     input.Page,
			Limit:    input.Limit,
		}
		// Citizens only ever see their own complaints.
		if p.Role == domain.RoleCitizen {
			filter.OwnerID = p.UserID
		}
		items, err := e.Repo.ListComplaints(ctx, filter)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ComplaintResponse `json:"body"`
		}{Body: mapComplaints(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complaint-stats",
		Method:      http.MethodGet,
		Path:        "/complaints/stats",
		Summary:     "Complaint statistics",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatsResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		stats, err := e.Repo.ComplaintStats(ctx, e.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatsResponse `json:"body"`
		}{Body: statsResponse(stats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-complaint",
		Method:      http.MethodGet,
		Path:        "/complaints/{id}",
		Summary:     "Get complaint",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ComplaintResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Repo.GetComplaint(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if p.Role == domain.RoleCitizen && c.OwnerID != p.UserID {
			return nil, newAPIError(http.StatusNotFound, "not_found", "complaint not found", nil)
		}
		return &struct {
			Body ComplaintResponse `json:"body"`
		}{Body: complaintResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-complaint-status",
		Method:      http.MethodPatch,
		Path:        "/complaints/{id}/status",
		Summary:     "Update complaint status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body UpdateStatusRequest `json:"body"`
	}) (*struct {
		Body ComplaintResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateStatus(ctx, engine.StatusUpdateOptions{
			ID:              input.ID,
			Status:          input.Body.Status,
			AdminNote:       input.Body.AdminNote,
			AssignedOfficer: input.Body.AssignedOfficer,
			ActorID:         p.UserID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ComplaintResponse `json:"body"`
		}{Body: complaintResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-complaint",
		Method:      http.MethodPatch,
		Path:        "/complaints/{id}/resolve",
		Summary:     "Resolve complaint",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body ResolveRequest `json:"body"`
	}) (*struct {
		Body ComplaintResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Resolve(ctx, input.ID, input.Body.ResolvePhotoURL, input.Body.AdminNote, input.Body.AssignedOfficer, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ComplaintResponse `json:"body"`
		}{Body: complaintResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "support-complaint",
		Method:      http.MethodPost,
		Path:        "/complaints/{id}/support",
		Summary:     "Support a complaint",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ComplaintResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.RoleCitizen)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Support(ctx, input.ID, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ComplaintResponse `json:"body"`
		}{Body: complaintResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complaint-feedback",
		Method:      http.MethodPost,
		Path:        "/complaints/{id}/feedback",
		Summary:     "Submit feedback on a resolved complaint",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body FeedbackRequest `json:"body"`
	}) (*struct {
		Body ComplaintResponse `json:"body"`
	}, error) {
		p, authErr := requireRole(ctx, domain.RoleCitizen)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SubmitFeedback(ctx, input.ID, p.UserID, domain.Feedback{
			Rating:   input.Body.Rating,
			Comment:  input.Body.Comment,
			Resolved: input.Body.Resolved,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ComplaintResponse `json:"body"`
		}{Body: complaintResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-complaint",
		Method:      http.MethodDelete,
		Path:        "/complaints/{id}",
		Summary:     "Delete complaint",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		p, authErr := requireRole(ctx, domain.RoleAdmin)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteComplaint(ctx, input.ID, p.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "leaderboard",
		Method:      http.MethodGet,
		Path:        "/users/leaderboard",
		Summary:     "Citizen leaderboard",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Ward  string `query:"ward"`
		Limit int    `query:"limit" default:"20"`
	}) (*struct {
		Body []UserResponse `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		users, err := e.Repo.Leaderboard(ctx, input.Ward, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UserResponse `json:"body"`
		}{Body: mapUsers(users)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get own profile",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.GetUser(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/users/me",
		Summary:     "Update own profile",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body UpdateProfileRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.UpdateUserProfile(ctx, p.UserID, input.Body.Name, input.Body.Ward)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-password",
		Method:      http.MethodPatch,
		Path:        "/users/me/password",
		Summary:     "Change own password",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body ChangePasswordRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ChangePassword(ctx, p.UserID, input.Body.Current, input.Body.Next); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Role string `query:"role"`
	}) (*struct {
		Body []UserResponse `json:"body"`
	}, error) {
		if _, authErr := requireRole(ctx, domain.RoleAdmin); authErr != nil {
			return nil, authErr
		}
		users, err := e.Repo.ListUsers(ctx, input.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UserResponse `json:"body"`
		}{Body: mapUsers(users)}, nil
	})
}
