package models

import "regexp"

// Role decides whether a device pushes its ledger or only observes it
type Role string

const (
	RoleAdmin  Role = "ADMIN"  // edits and pushes to the book store
	RoleViewer Role = "VIEWER" // read only, polls the book store
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleViewer }

func (r Role) IsWriter() bool { return r == RoleAdmin }

// DeviceType is the coarse kind of device a session runs on
type DeviceType string

const (
	DeviceLaptop  DeviceType = "LAPTOP"
	DeviceAndroid DeviceType = "ANDROID"
	DeviceIPhone  DeviceType = "IPHONE"
)

var (
	androidUA = regexp.MustCompile(`(?i)android`)
	iosUA     = regexp.MustCompile(`(?i)iphone|ipad|ipod`)
)

// DetectDeviceType classifies a user agent string
func DetectDeviceType(userAgent string) DeviceType {
	switch {
	case androidUA.MatchString(userAgent):
		return DeviceAndroid
	case iosUA.MatchString(userAgent):
		return DeviceIPhone
	default:
		return DeviceLaptop
	}
}

// RoleForDevice is the fallback when no role is configured: the till
// laptop is the admin, phones watch.
func RoleForDevice(d DeviceType) Role {
	if d == DeviceLaptop || d == "" {
		return RoleAdmin
	}
	return RoleViewer
}
