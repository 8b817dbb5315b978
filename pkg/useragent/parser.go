package useragent

import (
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Device types reported for a click.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// Parser classifies click User-Agents into device type, browser and OS.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo represents parsed device information
type DeviceInfo struct {
	DeviceType string
	Browser    string
	OS         string
}

var (
	botIndicators = []string{
		"googlebot", "bingbot", "slurp", "duckduckbot", "baiduspider",
		"yandexbot", "facebookexternalhit", "twitterbot", "linkedinbot",
		"whatsapp", "telegram", "skypeuripreview", "bot", "crawler",
		"spider", "scraper",
	}
	tabletDevices = []string{"ipad", "tablet", "kindle", "surface"}
	mobileDevices = []string{"iphone", "android", "blackberry", "windows phone", "mobile", "phone"}
	mobileOS      = []string{"ios", "android", "windows phone", "blackberry os", "firefox os", "sailfish os"}
	desktopOS     = []string{
		"windows", "mac os x", "macos", "linux", "ubuntu",
		"chrome os", "freebsd", "openbsd", "netbsd",
	}
)

// NewParser loads regexes from regexFilePath. When the file is missing or
// broken the definitions bundled with uap-go are used instead.
func NewParser(regexFilePath string, log *zap.Logger) *Parser {
	if regexFilePath != "" {
		if _, err := os.Stat(regexFilePath); err == nil {
			parser, err := uaparser.New(regexFilePath)
			if err == nil {
				log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))
				return &Parser{parser: parser, log: log}
			}
			log.Warn("failed to load User-Agent regexes, using bundled definitions",
				zap.String("regexes_file", regexFilePath), zap.Error(err))
		}
	}

	return &Parser{parser: uaparser.NewFromSaved(), log: log}
}

// Parse parses a User-Agent string. Empty input yields nil: nothing to derive.
func (p *Parser) Parse(userAgent string) *DeviceInfo {
	if userAgent == "" {
		return nil
	}

	client := p.parser.Parse(userAgent)

	info := &DeviceInfo{
		DeviceType: deviceType(client, userAgent),
		Browser:    family(client.UserAgent.Family),
		OS:         family(client.Os.Family),
	}

	p.log.Debug("parsed User-Agent",
		zap.String("device_type", info.DeviceType),
		zap.String("browser", info.Browser),
		zap.String("os", info.OS),
	)

	return info
}

func deviceType(client *uaparser.Client, userAgent string) string {
	ua := strings.ToLower(userAgent)
	uaFamily := strings.ToLower(client.UserAgent.Family)
	osFamily := strings.ToLower(client.Os.Family)
	deviceFamily := strings.ToLower(client.Device.Family)

	// Bots first: preview fetchers also look like mobile browsers
	if containsAny(uaFamily, botIndicators) || containsAny(ua, botIndicators) {
		return DeviceBot
	}

	if deviceFamily != "" && deviceFamily != "other" {
		if containsAny(deviceFamily, tabletDevices) {
			return DeviceTablet
		}
		if containsAny(deviceFamily, mobileDevices) {
			return DeviceMobile
		}
	}

	if containsAny(osFamily, mobileOS) {
		// iPad reports iOS; Android tablets omit "Mobile"
		if strings.Contains(osFamily, "ios") && strings.Contains(ua, "ipad") {
			return DeviceTablet
		}
		if strings.Contains(osFamily, "android") && !strings.Contains(ua, "mobile") {
			return DeviceTablet
		}
		return DeviceMobile
	}

	if containsAny(osFamily, desktopOS) {
		return DeviceDesktop
	}

	return DeviceUnknown
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// family replaces uap-go's "Other" with "unknown"
func family(s string) string {
	if s == "" || s == "Other" {
		return DeviceUnknown
	}
	return s
}
