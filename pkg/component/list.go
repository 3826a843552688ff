package component

import (
	"fmt"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/state"
)

// DefaultExperience is appended by Add on the experiences collection.
func DefaultExperience() model.Experience {
	return model.Experience{
		Name:    "New experience",
		URL:     "https://www.example.com",
		Summary: "Experience summary",
	}
}

// DefaultSkill is appended by Add on the skills collection.
func DefaultSkill() model.Skill {
	return model.Skill{Name: "New skill"}
}

// ListController appends and removes collection items. Every mutation builds
// a new sequence and goes through store.Set.
type ListController struct {
	store *state.Store
}

// NewListController binds a controller to store.
func NewListController(store *state.Store) *ListController {
	return &ListController{store: store}
}

// AddItem appends value to collection. value must be a model.Experience for
// experiences and a model.Skill for skills; nil appends the default item.
// Appends past model.MaxItems are rejected with a *model.ValidationError.
func (c *ListController) AddItem(collection model.Collection, value any) error {
	doc := c.store.Get()

	switch collection {
	case model.CollectionExperiences:
		item := DefaultExperience()
		if value != nil {
			typed, ok := value.(model.Experience)
			if !ok {
				return fmt.Errorf("component: add %s: unexpected item type %T", collection, value)
			}
			item = typed
		}
		if err := model.ValidateLength(collection, len(doc.Experiences)+1); err != nil {
			return err
		}
		items := append(model.CloneExperiences(doc.Experiences), item)
		c.store.Set(state.Patch{Experiences: state.Experiences(items)})
		return nil

	case model.CollectionSkills:
		item := DefaultSkill()
		if value != nil {
			typed, ok := value.(model.Skill)
			if !ok {
				return fmt.Errorf("component: add %s: unexpected item type %T", collection, value)
			}
			item = typed
		}
		if err := model.ValidateLength(collection, len(doc.Skills)+1); err != nil {
			return err
		}
		items := append(model.CloneSkills(doc.Skills), item)
		c.store.Set(state.Patch{Skills: state.Skills(items)})
		return nil
	}
	return fmt.Errorf("component: add: unknown collection %q", collection)
}

// DeleteItem removes the item at index. Out of range indexes are a no-op and
// report false; the remaining items keep their order and identifiers.
func (c *ListController) DeleteItem(collection model.Collection, index int) bool {
	doc := c.store.Get()
	if index < 0 || index >= doc.Len(collection) {
		return false
	}

	switch collection {
	case model.CollectionExperiences:
		items := make([]model.Experience, 0, len(doc.Experiences)-1)
		items = append(items, doc.Experiences[:index]...)
		items = append(items, doc.Experiences[index+1:]...)
		c.store.Set(state.Patch{Experiences: state.Experiences(items)})
	case model.CollectionSkills:
		items := make([]model.Skill, 0, len(doc.Skills)-1)
		items = append(items, doc.Skills[:index]...)
		items = append(items, doc.Skills[index+1:]...)
		c.store.Set(state.Patch{Skills: state.Skills(items)})
	default:
		return false
	}
	return true
}
