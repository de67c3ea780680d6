// Package model contains the GORM persistence models.
package model

// All returns every model managed by AutoMigrate.
func All() []any {
	return []any{&UserModel{}, &DeviceModel{}, &SessionModel{}}
}
