// internal/model/developer.go
package model

import "time"

// Mission names the scouting pass that discovered or reprocessed a developer.
type Mission string

const (
	MissionHallOfFame     Mission = "hall_of_fame"
	MissionTrendingExpert Mission = "trending_expert"
	MissionRisingStar     Mission = "rising_star"
	MissionBadgeHolder    Mission = "badge_holder"
)

// Missions lists every supported mission in processing order.
var Missions = []Mission{MissionHallOfFame, MissionTrendingExpert, MissionRisingStar, MissionBadgeHolder}

// Valid reports whether m is a known mission.
func (m Mission) Valid() bool {
	for _, known := range Missions {
		if m == known {
			return true
		}
	}
	return false
}

// DeveloperProfile is a developer as fetched from GitHub, with their repositories.
type DeveloperProfile struct {
	ID               int64
	Login            string
	Name             *string
	AvatarURL        string
	HTMLURL          string
	Bio              *string
	Company          *string
	Location         *string
	Blog             *string
	Followers        int
	Following        int
	PublicRepos      int
	AccountCreatedAt time.Time
	OwnedRepos       []DeveloperRepo
	ContributedRepos []DeveloperRepo
}

// DeveloperRepo is a repository seen from a developer's profile.
type DeveloperRepo struct {
	ID            int64
	Owner         string
	Name          string
	Description   *string
	Stars         int
	Forks         int
	Language      *string
	Topics        []string
	PushedAt      time.Time
	DiskUsage     int
	IsArchived    bool
	IsFork        bool
	TotalCommits  int
	RecentCommits int
	IsOwner       bool
}

// FullName returns the owner/name form of the repository.
func (r *DeveloperRepo) FullName() string {
	return r.Owner + "/" + r.Name
}

// LanguageName returns the primary language or an empty string.
func (r *DeveloperRepo) LanguageName() string {
	if r.Language == nil {
		return ""
	}
	return *r.Language
}

// BadgeType identifies a detected certification or recognition.
type BadgeType string

const (
	BadgeGDE            BadgeType = "GDE"
	BadgeMVP            BadgeType = "MVP"
	BadgeGitHubStar     BadgeType = "GITHUB_STAR"
	BadgeAWSHero        BadgeType = "AWS_HERO"
	BadgeCNCFAmbassador BadgeType = "CNCF_AMBASSADOR"
	BadgeDockerCaptain  BadgeType = "DOCKER_CAPTAIN"
	BadgeCISSP          BadgeType = "CISSP"
	BadgeOSCP           BadgeType = "OSCP"
	BadgeCKA            BadgeType = "CKA"
	BadgeBigTech        BadgeType = "BIG_TECH"
)

// BadgeTypes lists every badge type.
var BadgeTypes = []BadgeType{
	BadgeGDE, BadgeMVP, BadgeGitHubStar, BadgeAWSHero, BadgeCNCFAmbassador,
	BadgeDockerCaptain, BadgeCISSP, BadgeOSCP, BadgeCKA, BadgeBigTech,
}

func ValidBadgeType(t string) bool {
	for _, known := range BadgeTypes {
		if BadgeType(t) == known {
			return true
		}
	}
	return false
}

// Badge is a recognition detected from a developer's bio or company.
type Badge struct {
	Type     BadgeType `json:"type"`
	Label    string    `json:"label"`
	Category string    `json:"category,omitempty"`
}

// Persona is one of the fixed developer archetypes.
type Persona string

const (
	PersonaAIWhisperer       Persona = "ai_whisperer"
	PersonaDataAlchemist     Persona = "data_alchemist"
	PersonaSystemsArchitect  Persona = "systems_architect"
	PersonaChainArchitect    Persona = "chain_architect"
	PersonaGameGuru          Persona = "game_guru"
	PersonaFrontendWizard    Persona = "frontend_wizard"
	PersonaBackendBuilder    Persona = "backend_builder"
	PersonaCloudCommander    Persona = "cloud_commander"
	PersonaSecurityGuardian  Persona = "security_guardian"
	PersonaMobileMaestro     Persona = "mobile_maestro"
	PersonaToolingSmith      Persona = "tooling_smith"
	PersonaEmbeddedTinkerer  Persona = "embedded_tinkerer"
	PersonaDataPlumber       Persona = "data_plumber"
	PersonaResearchScientist Persona = "research_scientist"
	PersonaDesignVirtuoso    Persona = "design_virtuoso"
	PersonaDocsScribe        Persona = "docs_scribe"
	PersonaQuantumExplorer   Persona = "quantum_explorer"
	PersonaLanguageDesigner  Persona = "language_designer"
)

// Personas lists the 18 persona keys in a stable order.
var Personas = []Persona{
	PersonaAIWhisperer, PersonaDataAlchemist, PersonaSystemsArchitect, PersonaChainArchitect,
	PersonaGameGuru, PersonaFrontendWizard, PersonaBackendBuilder, PersonaCloudCommander,
	PersonaSecurityGuardian, PersonaMobileMaestro, PersonaToolingSmith, PersonaEmbeddedTinkerer,
	PersonaDataPlumber, PersonaResearchScientist, PersonaDesignVirtuoso, PersonaDocsScribe,
	PersonaQuantumExplorer, PersonaLanguageDesigner,
}

// ValidPersona reports whether p is one of the fixed persona keys.
func ValidPersona(p string) bool {
	for _, known := range Personas {
		if Persona(p) == known {
			return true
		}
	}
	return false
}

// PersonaScores maps every persona to a score in [0,100].
type PersonaScores map[Persona]float64

// NewPersonaScores returns scores with every persona present and zero.
func NewPersonaScores() PersonaScores {
	s := make(PersonaScores, len(Personas))
	for _, p := range Personas {
		s[p] = 0
	}
	return s
}

// ExpertiseLevel is the bucket a language score falls into.
type ExpertiseLevel string

const (
	LevelMaster       ExpertiseLevel = "master"
	LevelExpert       ExpertiseLevel = "expert"
	LevelAdvanced     ExpertiseLevel = "advanced"
	LevelIntermediate ExpertiseLevel = "intermediate"
	LevelBeginner     ExpertiseLevel = "beginner"
)

// LanguageScore is the expertise computed for one language.
type LanguageScore struct {
	Score        float64        `json:"score"`
	Level        ExpertiseLevel `json:"level"`
	RepoCount    int            `json:"repo_count"`
	TotalStars   int            `json:"total_stars"`
	TotalCommits int            `json:"total_commits"`
	IsPrimary    bool           `json:"is_primary"`
}

// LanguageExpertise summarises a developer's languages.
type LanguageExpertise struct {
	Languages     map[string]LanguageScore `json:"languages"`
	Primary       string                   `json:"primary,omitempty"`
	Favorites     []string                 `json:"favorites"`
	PolyglotScore float64                  `json:"polyglot_score"`
}

// WorkMode classifies a work summary.
type WorkMode string

const (
	WorkSingleMasterpiece WorkMode = "single_masterpiece"
	WorkDualWielding      WorkMode = "dual_wielding"
	WorkFocused           WorkMode = "focused"
	WorkMultiTasking      WorkMode = "multi_tasking"
	WorkDormant           WorkMode = "dormant"
)

// WorkSummary is the showcase selection for current or primary work.
type WorkSummary struct {
	Mode  WorkMode   `json:"mode"`
	Repos []WorkRepo `json:"repos"`
}

// WorkRepo is a repository picked for a work summary.
type WorkRepo struct {
	FullName    string  `json:"full_name"`
	Description string  `json:"description,omitempty"`
	Language    string  `json:"language,omitempty"`
	Stars       int     `json:"stars"`
	Score       float64 `json:"score"`
}
