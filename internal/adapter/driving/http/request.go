package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names in validation errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes exactly one JSON object into dst and validates it.
func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	if dec.More() {
		return errors.New("request body must only contain one JSON object")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q validation", e.Field(), e.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

type createWordPressRequest struct {
	SiteName        string `json:"site_name" validate:"required"`
	SiteURL         string `json:"site_url" validate:"required,http_url"`
	Username        string `json:"wp_username" validate:"required"`
	Password        string `json:"wp_password" validate:"required"`
	SiteLanguage    string `json:"site_language" validate:"omitempty,max=16"`
	SiteDescription string `json:"site_description"`
}

func (r createWordPressRequest) toNew() model.NewWordPressConnection {
	return model.NewWordPressConnection{
		SiteName:        r.SiteName,
		SiteURL:         r.SiteURL,
		Username:        r.Username,
		Password:        r.Password,
		SiteLanguage:    r.SiteLanguage,
		SiteDescription: r.SiteDescription,
	}
}

type patchWordPressRequest struct {
	SiteName        *string `json:"site_name" validate:"omitempty,min=1"`
	SiteURL         *string `json:"site_url" validate:"omitempty,http_url"`
	Username        *string `json:"wp_username" validate:"omitempty,min=1"`
	Password        *string `json:"wp_password" validate:"omitempty,min=1"`
	SiteLanguage    *string `json:"site_language" validate:"omitempty,max=16"`
	SiteDescription *string `json:"site_description"`
	Enabled         *bool   `json:"enabled"`
}

func (r patchWordPressRequest) toPatch() model.WordPressPatch {
	return model.WordPressPatch{
		SiteName:        r.SiteName,
		SiteURL:         r.SiteURL,
		Username:        r.Username,
		Password:        r.Password,
		SiteLanguage:    r.SiteLanguage,
		SiteDescription: r.SiteDescription,
		Enabled:         r.Enabled,
	}
}

type createKieRequest struct {
	Name        string `json:"connection_name" validate:"required"`
	APIKey      string `json:"api_key" validate:"required"`
	Description string `json:"description"`
}

func (r createKieRequest) toNew() model.NewKieConnection {
	return model.NewKieConnection{Name: r.Name, APIKey: r.APIKey, Description: r.Description}
}

type patchKieRequest struct {
	Name        *string `json:"connection_name" validate:"omitempty,min=1"`
	APIKey      *string `json:"api_key" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

func (r patchKieRequest) toPatch() model.KiePatch {
	return model.KiePatch{Name: r.Name, APIKey: r.APIKey, Description: r.Description, Enabled: r.Enabled}
}

type createWordstatRequest struct {
	Name         string `json:"connection_name" validate:"required"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	RedirectURI  string `json:"redirect_uri" validate:"omitempty,url"`
	Description  string `json:"description"`
}

func (r createWordstatRequest) toNew() model.NewWordstatConnection {
	return model.NewWordstatConnection{
		Name:         r.Name,
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		RedirectURI:  r.RedirectURI,
		Description:  r.Description,
	}
}

type patchWordstatRequest struct {
	Name         *string `json:"connection_name" validate:"omitempty,min=1"`
	ClientID     *string `json:"client_id" validate:"omitempty,min=1"`
	ClientSecret *string `json:"client_secret" validate:"omitempty,min=1"`
	RedirectURI  *string `json:"redirect_uri" validate:"omitempty,url"`
	Description  *string `json:"description"`
	Enabled      *bool   `json:"enabled"`
}

func (r patchWordstatRequest) toPatch() model.WordstatPatch {
	return model.WordstatPatch{
		Name:         r.Name,
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		RedirectURI:  r.RedirectURI,
		Description:  r.Description,
		Enabled:      r.Enabled,
	}
}

type createTelegramRequest struct {
	BotName     string `json:"bot_name" validate:"required"`
	BotToken    string `json:"bot_token" validate:"required"`
	ChatID      string `json:"chat_id" validate:"required"`
	Description string `json:"description"`
}

func (r createTelegramRequest) toNew() model.NewTelegramConnection {
	return model.NewTelegramConnection{
		BotName:     r.BotName,
		BotToken:    r.BotToken,
		ChatID:      r.ChatID,
		Description: r.Description,
	}
}

type patchTelegramRequest struct {
	BotName     *string `json:"bot_name" validate:"omitempty,min=1"`
	BotToken    *string `json:"bot_token" validate:"omitempty,min=1"`
	ChatID      *string `json:"chat_id" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

func (r patchTelegramRequest) toPatch() model.TelegramPatch {
	return model.TelegramPatch{
		BotName:     r.BotName,
		BotToken:    r.BotToken,
		ChatID:      r.ChatID,
		Description: r.Description,
		Enabled:     r.Enabled,
	}
}
