package fakeequipmentrepo

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/labtrack/labtrack-auth/equipment"
)

var _ equipment.Repo = (*FakeEquipmentRepo)(nil)

type FakeEquipmentRepo struct {
	items map[string]*equipment.Equipment
	lock  sync.RWMutex
}

func NewFakeEquipmentRepo() *FakeEquipmentRepo {
	return &FakeEquipmentRepo{
		items: make(map[string]*equipment.Equipment),
	}
}

func (er *FakeEquipmentRepo) Upsert(item *equipment.Equipment) error {
	er.lock.Lock()
	defer er.lock.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	er.items[item.ID] = item
	return nil
}

func (er *FakeEquipmentRepo) Delete(id string) error {
	er.lock.Lock()
	defer er.lock.Unlock()

	if _, ok := er.items[id]; !ok {
		return errors.New("not found")
	}
	delete(er.items, id)
	return nil
}

func (er *FakeEquipmentRepo) GetByID(id string) (*equipment.Equipment, error) {
	er.lock.RLock()
	defer er.lock.RUnlock()

	if _, ok := er.items[id]; !ok {
		return nil, errors.New("not found")
	}
	return er.items[id], nil
}

func (er *FakeEquipmentRepo) List() ([]*equipment.Equipment, error) {
	er.lock.RLock()
	defer er.lock.RUnlock()

	list := make([]*equipment.Equipment, 0, len(er.items))
	for _, item := range er.items {
		list = append(list, item)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}
