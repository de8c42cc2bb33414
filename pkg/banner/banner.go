package banner

import (
	"fmt"

	"chatrelay/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██████╗ ███████╗██╗      █████╗ ██╗   ██╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██║     ███████║███████║   ██║   ██████╔╝█████╗  ██║     ███████║ ╚████╔╝
██║     ██╔══██║██╔══██║   ██║   ██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝
╚██████╗██║  ██║██║  ██║   ██║   ██║  ██║███████╗███████╗██║  ██║   ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝
`

// PrintWithEff prints the startup banner using an EffectiveConfigResult
// which provides richer context (config, addr, dbpath, source).
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /chat   - Relay a message (JSON: message, sessionId, attachments)")
	fmt.Println("POST /upload - Upload a file (multipart field 'file')")
	fmt.Println("GET  /v1/sessions - List stored sessions")

	fmt.Println("\n== Production? =================================================")
	if eff.Config != nil {
		if eff.Config.Webhook.URL != "" {
			fmt.Printf("- Webhook: %s\n", eff.Config.Webhook.URL)
		} else {
			fmt.Println("- Webhook: MISSING (set webhook.url or CHATRELAY_WEBHOOK_URL)")
		}
		if eff.Config.Webhook.CAFile != "" {
			fmt.Println("- Webhook CA: configured")
		} else {
			fmt.Println("- Webhook CA: system roots only")
		}
		if len(eff.Config.Security.APIKeys) > 0 {
			fmt.Printf("- API keys: OK (%d)\n", len(eff.Config.Security.APIKeys))
		} else {
			fmt.Println("- API keys: none (open mode; add keys for production)")
		}
		if eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
			fmt.Println("- TLS: configured")
		} else {
			fmt.Println("- TLS: unconfigured")
		}
		if eff.Config.Development() {
			fmt.Println("- Mode: development (insecure webhook retry enabled)")
		} else {
			fmt.Println("- Mode: production")
		}
		if eff.Config.Retention.Enabled {
			info := ""
			if eff.Config.Retention.Cron != "" {
				info = "cron=" + eff.Config.Retention.Cron
			}
			if eff.Config.Retention.Period != "" {
				if info != "" {
					info += " "
				}
				info += "period=" + eff.Config.Retention.Period
			}
			if info != "" {
				fmt.Printf("- Retention: enabled (%s)\n", info)
			} else {
				fmt.Println("- Retention: enabled")
			}
		} else {
			fmt.Println("- Retention: disabled")
		}
	}

	fmt.Println("\n== Logs: =================================================")
}
