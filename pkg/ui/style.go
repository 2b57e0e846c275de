package ui

import "github.com/charmbracelet/lipgloss"

type Style struct {
	UserMessage   lipgloss.Style
	AIMessage     lipgloss.Style
	EditedMessage lipgloss.Style
	Input         lipgloss.Style
	Title         lipgloss.Style
	Status        lipgloss.Style
	Error         lipgloss.Style
}

type BorderColors struct {
	User   string
	AI     string
	Edited string
	Input  string
}

func DefaultStyles() *Style {
	lightModeColors := BorderColors{
		User:   "#CCCCCC",
		AI:     "#FFB6C1", // Light pink
		Edited: "#FFA500",
		Input:  "#FFFF99", // Light yellow
	}

	darkModeColors := BorderColors{
		User:   "#444444",
		AI:     "#DD7090",
		Edited: "#CC8400",
		Input:  "#DDDD77",
	}

	border := func(style lipgloss.Border, light, dark string) lipgloss.Style {
		return lipgloss.NewStyle().Border(style).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: light, Dark: dark})
	}

	return &Style{
		UserMessage:   border(lipgloss.NormalBorder(), lightModeColors.User, darkModeColors.User),
		AIMessage:     border(lipgloss.RoundedBorder(), lightModeColors.AI, darkModeColors.AI),
		EditedMessage: border(lipgloss.ThickBorder(), lightModeColors.Edited, darkModeColors.Edited),
		Input:         border(lipgloss.NormalBorder(), lightModeColors.Input, darkModeColors.Input),
		Title:         lipgloss.NewStyle().Bold(true),
		Status:        lipgloss.NewStyle().Faint(true),
		Error:         lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
	}
}
