package shared

import (
	"github.com/alexxvives/akademo_api/dto"
	"github.com/gofiber/fiber/v2"
)

// CallerIdentity reads the identity stored by the auth middleware
func CallerIdentity(c *fiber.Ctx) dto.Identity {
	userID, _ := c.Locals(UserID).(string)
	role, _ := c.Locals(UserRole).(string)
	return dto.Identity{UserID: userID, Role: role}
}

// CallerDevice reads the device resolved for this request
func CallerDevice(c *fiber.Ctx) dto.DeviceInfo {
	device, _ := c.Locals(DeviceInfo).(dto.DeviceInfo)
	return device
}
