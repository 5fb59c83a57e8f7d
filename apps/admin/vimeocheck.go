package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/darasalabs/darasa/core"
)

// vimeoCheck diagnoses the video host configuration. Secret values are
// reported by length and prefix only.
func (cli *commandLine) vimeoCheck(probe bool) error {
	vh := cli.conf.VideoHost

	fmt.Println("=== Video Host Configuration Check ===")
	fmt.Println()
	fmt.Printf("Base URL:       %s\n", vh.BaseURL)
	cli.reportSecret("Client ID", vh.ClientID, vh.ClientID == core.PlaceholderClientID)
	cli.reportSecret("Client Secret", vh.ClientSecret, vh.ClientSecret == core.PlaceholderClientSecret)
	cli.reportSecret("Access Token", vh.AccessToken, false)
	fmt.Println()

	if err := vh.Validate(); err != nil {
		fmt.Println("RESULT: FAIL - credentials are missing or still set to template placeholders.")
		fmt.Println("Set the client id, client secret and access token in the environment and retry.")
		return err
	}
	fmt.Println("Static check: OK - all three credentials are present and non-placeholder.")
	fmt.Println("NOTE: a static check cannot detect an access token issued for a different")
	fmt.Println("host application; use -probe for a live verification.")

	if !probe {
		return nil
	}

	fmt.Println()
	fmt.Println("Performing live identity call...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	identity, err := cli.hostSvc.Identity(ctx)
	if err != nil {
		fmt.Println("RESULT: FAIL - the host rejected the credentials.")
		if herr, ok := core.IsHostRequestError(err); ok {
			fmt.Printf("Host response: %v\n", herr)
			if herr.StatusCode == 401 {
				fmt.Println("HINT: the access token is invalid, expired, or was issued for a")
				fmt.Println("different host application than the client id/secret.")
			}
		}
		return err
	}

	fmt.Println("RESULT: OK - authenticated successfully.")
	fmt.Printf("Account:      %s (%s)\n", identity.Name, identity.URI)
	if identity.AccountType != "" {
		fmt.Printf("Account type: %s\n", identity.AccountType)
	}

	if identity.UploadQuota == nil {
		fmt.Println()
		fmt.Println("WARNING: the host reports no upload quota for this account;")
		fmt.Println("uploads will likely be rejected. Check the account tier and the")
		fmt.Println("token's upload scope.")
		return nil
	}

	quota := identity.UploadQuota
	fmt.Println()
	fmt.Println("Upload quota:")
	fmt.Printf("  Free: %s\n", core.FormatBytes(quota.SpaceFree))
	fmt.Printf("  Used: %s\n", core.FormatBytes(quota.SpaceUsed))
	fmt.Printf("  Max:  %s\n", core.FormatBytes(quota.SpaceMax))
	return nil
}

func (cli *commandLine) reportSecret(name, value string, placeholder bool) {
	label := name + ":"
	pad := strings.Repeat(" ", 15-len(label))
	switch {
	case value == "":
		fmt.Printf("%s%sNOT SET\n", label, pad)
	case placeholder:
		fmt.Printf("%s%sPLACEHOLDER VALUE (template default, must be replaced)\n", label, pad)
	default:
		fmt.Printf("%s%sset (%d chars, prefix %q)\n", label, pad, len(value), core.SecretPrefix(value, 6))
	}
}
