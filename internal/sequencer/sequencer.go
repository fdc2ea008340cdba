package sequencer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/hogwarts-cloud/clonectl/internal/models"
)

var (
	ErrInvalidCount = errors.New("count must be at least 1")
	ErrNotIPv4      = errors.New("not an ipv4 address")
)

// IPToUint32 converts a dotted-quad address to its integer form.
func IPToUint32(ip net.IP) (uint32, error) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, ErrNotIPv4
	}

	return binary.BigEndian.Uint32(v4), nil
}

// Uint32ToIP is the inverse of IPToUint32.
func Uint32ToIP(v uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, v)

	return ip
}

// Allocate maps an allocation index to its task: id is BaseID+index, the
// address is StartIP+index under 32-bit unsigned arithmetic. Pure and
// idempotent. The result is not checked against the declared prefix:
// crossing a subnet boundary is accepted as operator error and surfaces
// downstream as a clone or readiness failure.
func Allocate(req models.AllocationRequest, index int) (models.CloneTask, error) {
	start, err := IPToUint32(req.StartIP)
	if err != nil {
		return models.CloneTask{}, fmt.Errorf("failed to convert start address: %w", err)
	}

	task := models.CloneTask{
		Index:      index,
		InstanceID: req.BaseID + index,
		IP:         Uint32ToIP(start + uint32(index)),
		Name:       fmt.Sprintf("%s%d", req.NamePrefix, index),
	}

	return task, nil
}

// Tasks validates the request and computes the full task list for a run.
func Tasks(req models.AllocationRequest) ([]models.CloneTask, error) {
	if req.Count < 1 {
		return nil, ErrInvalidCount
	}

	tasks := make([]models.CloneTask, 0, req.Count)
	for index := 0; index < req.Count; index++ {
		task, err := Allocate(req, index)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate task %d: %w", index, err)
		}

		tasks = append(tasks, task)
	}

	return tasks, nil
}
