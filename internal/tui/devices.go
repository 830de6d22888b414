// SPDX-License-Identifier: MIT
//
// Package tui is an interactive device browser: pick an input device,
// choose a sample rate and block size, and get a ready-to-paste
// configuration snippet on exit.
package tui

import (
	"fmt"
	"strings"

	"spectro/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// screen identifies the active view.
type screen int

const (
	listScreen screen = iota
	configScreen
)

// configField identifies which option list has focus on the config
// screen.
type configField int

const (
	rateField configField = iota
	blockField
)

var (
	sampleRates = []float64{44100, 48000, 88200, 96000}
	blockSizes  = []int{256, 512, 1024, 2048, 4096, 8192}
)

// Selection is the outcome of a browser session.
type Selection struct {
	DeviceID   int
	SampleRate float64
	BlockSize  int
}

// DeviceBrowser is the Bubble Tea model behind the interactive device
// list. PortAudio must be initialized before the program runs.
type DeviceBrowser struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  screen

	// Configuration screen state.
	focused    configField
	rateIndex  int
	blockIndex int

	chosen    bool
	selection Selection
}

// NewDeviceBrowser returns a browser starting on the device list.
func NewDeviceBrowser() DeviceBrowser {
	blockIndex := 0
	for i, size := range blockSizes {
		if size == 1024 {
			blockIndex = i
		}
	}
	return DeviceBrowser{
		activeScreen: listScreen,
		blockIndex:   blockIndex,
	}
}

func (m DeviceBrowser) Init() tea.Cmd {
	return fetchDevices
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// fetchDevices enumerates host devices off the UI goroutine.
func fetchDevices() tea.Msg {
	devices, err := audio.HostDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

func (m DeviceBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true

			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case listScreen:
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.activeScreen = configScreen
					m.focused = rateField

					// Start from the device's preferred rate when it
					// is one of the offered ones.
					m.rateIndex = 0
					for i, rate := range sampleRates {
						if rate == m.devices[m.selectedIndex].DefaultSampleRate {
							m.rateIndex = i
							break
						}
					}

					m.viewport.SetContent(m.renderDeviceConfig())
				}
			}

		case configScreen:
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = listScreen
				m.viewport.SetContent(m.renderDevices())

			case key.Matches(msg, key.NewBinding(key.WithKeys("tab"))):
				if m.focused == rateField {
					m.focused = blockField
				} else {
					m.focused = rateField
				}
				m.viewport.SetContent(m.renderDeviceConfig())

			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.focused == rateField && m.rateIndex > 0 {
					m.rateIndex--
				} else if m.focused == blockField && m.blockIndex > 0 {
					m.blockIndex--
				}
				m.viewport.SetContent(m.renderDeviceConfig())

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.focused == rateField && m.rateIndex < len(sampleRates)-1 {
					m.rateIndex++
				} else if m.focused == blockField && m.blockIndex < len(blockSizes)-1 {
					m.blockIndex++
				}
				m.viewport.SetContent(m.renderDeviceConfig())

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				m.chosen = true
				m.selection = Selection{
					DeviceID:   m.devices[m.selectedIndex].ID,
					SampleRate: sampleRates[m.rateIndex],
					BlockSize:  blockSizes[m.blockIndex],
				}
				return m, tea.Quit
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m DeviceBrowser) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == listScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Change Value • Tab: Switch Field • Enter: Accept • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list.
func (m DeviceBrowser) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	for i, device := range m.devices {
		deviceType := ""
		if device.MaxInputChannels > 0 && device.MaxOutputChannels > 0 {
			deviceType = "Input/Output"
		} else if device.MaxInputChannels > 0 {
			deviceType = "Input"
		} else if device.MaxOutputChannels > 0 {
			deviceType = "Output"
		}

		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n",
			device.ID, device.Name, deviceType)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n",
			device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDeviceConfig formats the sample rate and block size pickers.
func (m DeviceBrowser) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	sb.WriteString(fmt.Sprintf("Configure Device: %s\n\n", device.Name))

	sb.WriteString("Sample Rate:\n")
	for i, rate := range sampleRates {
		marker := " "
		if i == m.rateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.rateIndex && m.focused == rateField {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	sb.WriteString("\nBlock Size:\n")
	for i, size := range blockSizes {
		marker := " "
		if i == m.blockIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %d samples\n", marker, size)
		if i == m.blockIndex && m.focused == blockField {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	return sb.String()
}

// RunDeviceBrowser runs the interactive browser and, when the user
// accepted a configuration, prints the matching YAML snippet.
func RunDeviceBrowser() error {
	p := tea.NewProgram(
		NewDeviceBrowser(),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := final.(DeviceBrowser); ok && m.chosen {
		fmt.Printf("\n# add to spectro.yaml:\naudio:\n  input_device: %d\n  sample_rate: %.0f\n  block_size: %d\n",
			m.selection.DeviceID, m.selection.SampleRate, m.selection.BlockSize)
	}
	return nil
}
