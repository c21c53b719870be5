// Package google 实现基于 Google Slides / Drive / Sheets 的文档与表格后端
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/slides/v1"

	"pitchforge-ai-api/internal/config"
)

// DefaultScopes 生成流程需要的授权范围
var DefaultScopes = []string{
	drive.DriveScope,
	slides.PresentationsScope,
	sheets.SpreadsheetsScope,
}

// Session 三个服务客户端共享同一套凭据
type Session struct {
	Slides *slides.Service
	Drive  *drive.Service
	Sheets *sheets.Service
}

// NewSession 按配置建立会话：
// 配置了 token_file 时按 OAuth 用户授权处理 credentials_file（客户端密钥）；
// 否则 credentials_file 视为服务账号密钥（配置 impersonate 时代表该用户）；两者都为空时使用应用默认凭据。
func NewSession(ctx context.Context, cfg *config.GoogleConfig) (*Session, error) {
	opts, err := ClientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewSessionWithOptions(ctx, opts...)
}

// NewSessionWithOptions 直接以 option 构建会话，测试中用于指向本地端点
func NewSessionWithOptions(ctx context.Context, opts ...option.ClientOption) (*Session, error) {
	slidesSvc, err := slides.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create slides service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Session{Slides: slidesSvc, Drive: driveSvc, Sheets: sheetsSvc}, nil
}

// ClientOptions 把配置转换为客户端 option
func ClientOptions(ctx context.Context, cfg *config.GoogleConfig) ([]option.ClientOption, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	var opts []option.ClientOption
	if cfg.QuotaProject != "" {
		opts = append(opts, option.WithQuotaProject(cfg.QuotaProject))
	}

	switch {
	case cfg.TokenFile != "":
		ts, err := userTokenSource(ctx, cfg.CredentialsFile, cfg.TokenFile, scopes)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithTokenSource(ts))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read google credentials: %w", err)
		}
		if cfg.Impersonate != "" {
			jwtConf, err := googleoauth.JWTConfigFromJSON(data, scopes...)
			if err != nil {
				return nil, fmt.Errorf("failed to parse service account key: %w", err)
			}
			jwtConf.Subject = cfg.Impersonate
			opts = append(opts, option.WithTokenSource(jwtConf.TokenSource(ctx)))
			break
		}
		creds, err := googleoauth.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse google credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	default:
		creds, err := googleoauth.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to find default google credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	return opts, nil
}

// userTokenSource 使用已保存的用户令牌，令牌过期时自动刷新
func userTokenSource(ctx context.Context, clientSecretFile, tokenFile string, scopes []string) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(clientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client secret: %w", err)
	}
	conf, err := googleoauth.ConfigFromJSON(secret, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse oauth client secret: %w", err)
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse oauth token: %w", err)
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, fmt.Errorf("oauth token in %s is expired and has no refresh token", tokenFile)
	}
	return conf.TokenSource(ctx, &tok), nil
}
