package equipment

type Repo interface {
	Upsert(item *Equipment) error
	Delete(ID string) error
	GetByID(ID string) (*Equipment, error)
	List() ([]*Equipment, error)
}
