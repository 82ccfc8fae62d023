package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// GenerateTrackingPixelURL generates a tracking pixel URL for email opens
func GenerateTrackingPixelURL(baseURL, messageID string) string {
	return fmt.Sprintf("%s/track/open/%s.gif", baseURL, messageID)
}

// GenerateClickTrackURL generates a tracked URL for links
func GenerateClickTrackURL(baseURL, messageID, originalURL string) string {
	encodedURL := url.QueryEscape(originalURL)
	return fmt.Sprintf("%s/track/click/%s?url=%s", baseURL, messageID, encodedURL)
}

// GenerateUnsubscribeURL generates the one-click unsubscribe landing URL
func GenerateUnsubscribeURL(baseURL string, clientID uint, messageID string) string {
	return fmt.Sprintf("%s/track/unsubscribe/%d/%s", baseURL, clientID, messageID)
}

// InjectTracking rewrites links for click tracking and appends the open pixel
// and unsubscribe footer to the rendered email body.
func InjectTracking(htmlContent, baseURL, messageID string, clientID uint) string {
	modifiedHTML := injectClickTracking(htmlContent, baseURL, messageID)

	pixelURL := GenerateTrackingPixelURL(baseURL, messageID)
	trackingPixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)

	unsubURL := GenerateUnsubscribeURL(baseURL, clientID, messageID)
	unsubFooter := fmt.Sprintf(`<p style="font-size:11px;color:#999;text-align:center"><a href="%s">Unsubscribe from these emails</a></p>`, unsubURL)

	return modifiedHTML + unsubFooter + trackingPixel
}

func injectClickTracking(html, baseURL, messageID string) string {
	// Plain string scan instead of a full HTML parse; the bodies are our own
	// templates so the anchor format is known.
	startTag := "<a href=\""
	endTag := "\""
	offset := 0

	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], endTag)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		originalURL := html[startIdx:endIdx]
		trackedURL := GenerateClickTrackURL(baseURL, messageID, originalURL)

		html = html[:startIdx] + trackedURL + html[endIdx:]
		offset = startIdx + len(trackedURL)
	}

	return html
}
