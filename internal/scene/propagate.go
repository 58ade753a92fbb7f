package scene

type urlChange struct {
	key PropagationKey
	url string
}

type transformChange struct {
	key       PropagationKey
	transform Transform
}

// ApplyEdit returns a new scene list with edited replacing the scene that
// shares its ID, plus the propagated side effects of the edit:
//
//   - a newly set, non-empty image URL is copied to every image with the same
//     PropagationKey in every other scene, before or after the edited one;
//   - a changed image transform is copied forward to later images with the
//     same key that have CopyFromPrevious set. The walk stops at the first
//     later image with that key that is not marked CopyFromPrevious; scenes
//     without the key are skipped.
//
// Changes are detected against the scene as it was before the edit, matching
// images by ID. All URL changes are applied before any transform change. If no
// scene has edited.ID the input is returned unchanged.
func ApplyEdit(scenes []Scene, edited Scene) []Scene {
	index := IndexOf(scenes, edited.ID)
	if index < 0 {
		return scenes
	}
	original := scenes[index]
	edited = edited.clone()

	result := make([]Scene, len(scenes))
	copy(result, scenes)
	owned := make([]bool, len(scenes))
	result[index] = edited
	owned[index] = true

	urls, transforms := diffImages(original, edited)
	for _, change := range urls {
		propagateURL(result, owned, edited.ID, change)
	}
	for _, change := range transforms {
		propagateTransform(result, owned, index, change)
	}

	// Propagation never targets the edited scene's own ID, but the literal
	// edit must survive regardless.
	result[index] = edited
	return result
}

func diffImages(original, edited Scene) ([]urlChange, []transformChange) {
	var urls []urlChange
	var transforms []transformChange
	for _, img := range edited.Images {
		pos := original.imageByID(img.ID)
		if pos < 0 {
			continue
		}
		before := original.Images[pos]
		if img.URL != before.URL && img.URL != "" {
			urls = append(urls, urlChange{key: img.Key(), url: img.URL})
		}
		if img.Transform != before.Transform {
			transforms = append(transforms, transformChange{key: img.Key(), transform: img.Transform})
		}
	}
	return urls, transforms
}

func propagateURL(scenes []Scene, owned []bool, editedID string, change urlChange) {
	for i := range scenes {
		if scenes[i].ID == editedID {
			continue
		}
		for j, img := range scenes[i].Images {
			if img.Key() != change.key || img.URL == change.url {
				continue
			}
			own(scenes, owned, i)
			scenes[i].Images[j].URL = change.url
		}
	}
}

func propagateTransform(scenes []Scene, owned []bool, from int, change transformChange) {
	for i := from + 1; i < len(scenes); i++ {
		copied, present := false, false
		for j, img := range scenes[i].Images {
			if img.Key() != change.key {
				continue
			}
			present = true
			if !img.CopyFromPrevious {
				continue
			}
			own(scenes, owned, i)
			scenes[i].Images[j].Transform = change.transform
			copied = true
		}
		if present && !copied {
			return
		}
	}
}

// own replaces scenes[i] with a private copy the first time it is written so
// the caller's scenes are never mutated.
func own(scenes []Scene, owned []bool, i int) {
	if owned[i] {
		return
	}
	scenes[i] = scenes[i].clone()
	owned[i] = true
}
