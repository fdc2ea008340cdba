package models

import "net"

// AllocationRequest describes one bulk provisioning run: clone the template
// Count times, assigning ids and addresses sequentially from BaseID/StartIP.
type AllocationRequest struct {
	TemplateID   int
	BaseID       int
	Count        int
	StartIP      net.IP
	PrefixLength int
	Gateway      net.IP
	Bridge       string
	NamePrefix   string
	Pool         string
	// DiskSpec is the pre-formatted disk size token for the clone's
	// storage backend, empty when the template's disk is kept as is.
	DiskSpec string
}

// CloneTask is one unit of work within a run. Immutable once computed.
type CloneTask struct {
	Index      int
	InstanceID int
	IP         net.IP
	Name       string
}

func (t CloneTask) MarshalYAML() (any, error) {
	return struct {
		ID   int    `yaml:"id"`
		IP   string `yaml:"ip"`
		Name string `yaml:"name"`
	}{ID: t.InstanceID, IP: t.IP.String(), Name: t.Name}, nil
}
