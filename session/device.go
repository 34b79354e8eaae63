package session

import (
	"github.com/mileusna/useragent"
)

// ParseDeviceInfo captures the informational device snapshot stored on the
// session record.
func ParseDeviceInfo(ipAddress, userAgentString string) DeviceInfo {
	info := DeviceInfo{
		IPAddress:  ipAddress,
		UserAgent:  userAgentString,
		Browser:    "Unknown Browser",
		OS:         "Unknown OS",
		DeviceType: "Unknown",
	}

	if userAgentString == "" {
		return info
	}

	ua := useragent.Parse(userAgentString)

	if ua.Name != "" {
		if ua.Version != "" {
			info.Browser = ua.Name + " " + ua.Version
		} else {
			info.Browser = ua.Name
		}
	}

	if ua.OS != "" {
		if ua.OSVersion != "" {
			info.OS = ua.OS + " " + ua.OSVersion
		} else {
			info.OS = ua.OS
		}
	}

	switch {
	case ua.Mobile:
		info.DeviceType = "Mobile"
	case ua.Tablet:
		info.DeviceType = "Tablet"
	case ua.Bot:
		info.DeviceType = "Bot"
	default:
		info.DeviceType = "Desktop"
	}

	return info
}
