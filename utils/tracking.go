package utils

import "fmt"

// GenerateTrackingPixelURL generates a tracking pixel URL for email opens
func GenerateTrackingPixelURL(baseURL, messageID string) string {
	return fmt.Sprintf("%s/track/open/%s", baseURL, messageID)
}

// GenerateUnsubscribeURL builds the public unsubscribe link for a contact token
func GenerateUnsubscribeURL(baseURL, token string) string {
	return fmt.Sprintf("%s/unsubscribe/%s", baseURL, token)
}

// InjectTracking appends the open-tracking pixel to email content
func InjectTracking(htmlContent, baseURL, messageID string) string {
	pixelURL := GenerateTrackingPixelURL(baseURL, messageID)
	trackingPixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)
	return htmlContent + trackingPixel
}

// AppendUnsubscribeFooter appends the unsubscribe footer to email content
func AppendUnsubscribeFooter(htmlContent, baseURL, token string) string {
	if token == "" {
		return htmlContent
	}
	link := GenerateUnsubscribeURL(baseURL, token)
	footer := fmt.Sprintf(`<p style="font-size:12px;color:#7f8c8d"><a href="%s">Unsubscribe</a></p>`, link)
	return htmlContent + footer
}
