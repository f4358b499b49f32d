package derive

// CreativeDirectionRecipe is the multi-topic recipe whose single-stage slices
// are narrated as one role at work.
const CreativeDirectionRecipe = "creative_direction"

type ConcernRole struct {
	Label    string `json:"label"`
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
}

var concernRoles = map[string]ConcernRole{
	"visual_style":              {Label: "Visual Style", RoleID: "cinematographer", RoleName: "Cinematographer"},
	"sound_and_music":           {Label: "Sound & Music", RoleID: "sound_designer", RoleName: "Sound Designer"},
	"rhythm_and_flow":           {Label: "Rhythm & Flow", RoleID: "editor", RoleName: "Editor"},
	"character_and_performance": {Label: "Character & Performance", RoleID: "performance_director", RoleName: "Performance Director"},
	"world_and_setting":         {Label: "World & Setting", RoleID: "production_designer", RoleName: "Production Designer"},
}

// DetectConcernGroup matches a creative-direction run that was sliced down to
// exactly one mapped topic stage.
func DetectConcernGroup(recipeID string, resolved []string) (ConcernRole, bool) {
	if recipeID != CreativeDirectionRecipe || len(resolved) != 1 {
		return ConcernRole{}, false
	}
	role, ok := concernRoles[resolved[0]]
	return role, ok
}

// ConcernStages lists the mapped topic stage ids in display order.
func ConcernStages() []string {
	return []string{"visual_style", "sound_and_music", "rhythm_and_flow", "character_and_performance", "world_and_setting"}
}
